// Package app implements the viewer application: it wires a cartridge, the
// picture-processor core and the frame pipeline to a presentation backend.
package app

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"nesview/internal/cartridge"
	"nesview/internal/graphics"
	"nesview/internal/snapshot"
)

const (
	windowTitle = "nesview"

	videoStep     = 0.125
	maxVideoLevel = 3.0
)

// Application represents the main viewer application
type Application struct {
	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	// Application state
	config   *Config
	emulator *Emulator
	captures *CaptureManager
	scene    *graphics.Scene

	// Control flags
	running     bool
	initialized bool
	headless    bool

	// Performance tracking
	frameCount  uint64
	startTime   time.Time
	lastFPSTime time.Time
	lastFPSAt   uint64
	lastStatsAt uint64
	currentFPS  float64

	// ROM management
	romPath   string
	cartridge *cartridge.Cartridge
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates a new viewer application
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new viewer application with optional headless mode
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			log.Printf("[App] Could not load config from %s, using defaults: %v", configPath, err)
		}
	}
	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates an application from an existing configuration
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	app := &Application{
		config:      config,
		headless:    headless || config.Video.Backend == string(graphics.BackendHeadless),
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	if err := app.initializeGraphicsBackend(); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "graphics setup",
			Err:       err,
		}
	}

	app.captures = NewCaptureManager(config.Paths.Captures)
	app.initialized = true
	return app, nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendEbitengine
	if app.headless {
		backendType = graphics.BackendHeadless
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	width, height := app.config.Window.Width, app.config.Window.Height
	graphicsConfig := graphics.Config{
		WindowTitle:  windowTitle,
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		OutputDir:    app.config.Paths.Captures,
		DumpFrames:   app.config.Viewer.DumpFrames,
		Headless:     app.headless,
		ShowOverlay:  app.config.Debug.ShowOverlay,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}
		// Headless builds stub out Ebitengine
		log.Printf("[App] Ebitengine backend failed (%v), falling back to headless mode", err)
		app.headless = true
		graphicsConfig.Headless = true
		app.graphicsBackend = graphics.NewHeadlessBackend()
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow(windowTitle, width, height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	app.videoProcessor = graphics.NewVideoProcessor(
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)

	return nil
}

// LoadROM loads an iNES file and shows its pattern tables through the scene
func (app *Application) LoadROM(romPath string) error {
	cart, err := cartridge.LoadFromFile(romPath)
	if err != nil {
		return &ApplicationError{
			Component: "cartridge",
			Operation: "load ROM",
			Err:       err,
		}
	}

	app.romPath = romPath
	app.window.SetTitle(fmt.Sprintf("%s - %s", windowTitle, filepath.Base(romPath)))
	return app.loadCartridge(cart)
}

// LoadDemo loads the built-in four-bank cartridge
func (app *Application) LoadDemo() error {
	cart, err := BuildDemoCartridge()
	if err != nil {
		return &ApplicationError{
			Component: "cartridge",
			Operation: "build demo",
			Err:       err,
		}
	}

	app.romPath = ""
	app.window.SetTitle(fmt.Sprintf("%s - demo", windowTitle))
	return app.loadCartridge(cart)
}

func (app *Application) loadCartridge(cart *cartridge.Cartridge) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	if app.emulator != nil {
		app.emulator.Close()
	}
	app.cartridge = cart
	app.emulator = NewEmulator(cart, app.window.Sheets(), app.config, app.colorFilter())
	app.scene = nil

	if app.config.Debug.EnableLogging {
		log.Printf("[App] Cartridge loaded: mapper %d, %d CHR banks, %s mirroring",
			cart.MapperID(), cart.CHRBanks(), cart.GetMirrorMode())
	}
	return nil
}

// Run starts the main application loop. Headless runs stop after the
// configured number of frames.
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.emulator == nil {
		return errors.New("no cartridge loaded")
	}

	app.running = true
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()

	if app.config.Debug.EnableLogging {
		log.Printf("[App] Starting viewer with %s backend", app.graphicsBackend.GetName())
	}

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			if err := app.RunFrame(); err != nil {
				return err
			}
			if !app.running {
				return app.window.Cleanup()
			}
			return nil
		})
		return ebitengineWindow.Run()
	}

	return app.RunFrames(app.config.Viewer.HeadlessFrames)
}

// RunFrames runs up to n frames without a display loop
func (app *Application) RunFrames(n int) error {
	if app.emulator == nil {
		return errors.New("no cartridge loaded")
	}
	app.running = true

	for i := 0; i < n && app.running; i++ {
		if err := app.RunFrame(); err != nil {
			return err
		}
		if app.window.ShouldClose() {
			app.Stop()
		}
	}

	if app.config.Debug.CaptureOnFinish && app.scene != nil {
		if _, err := app.Capture(); err != nil {
			return err
		}
	}

	if app.config.Debug.EnableLogging {
		stats := app.emulator.GetStats()
		log.Printf("[App] Ran %d frames: %d sheets regenerated, %d cells repainted",
			stats.FrameCount, stats.SheetsRegenerated, stats.CellsRepainted)
	}
	return nil
}

// RunFrame handles input, advances one frame and presents it
func (app *Application) RunFrame() error {
	app.processInput()

	if !app.emulator.Update() {
		return nil
	}

	app.scene = app.buildScene()
	if err := app.window.Present(app.scene); err != nil {
		return &ApplicationError{
			Component: "graphics",
			Operation: "present",
			Err:       err,
		}
	}

	app.updatePerformanceMetrics()
	return nil
}

// buildScene collects the presentation view of the last processed frame
func (app *Application) buildScene() *graphics.Scene {
	p := app.emulator.Pipeline()
	return &graphics.Scene{
		Frame:      p.Frames(),
		Backdrop:   p.BackgroundColor(),
		Sheets:     p.Sheets(),
		Background: p.Background(),
		Sprites:    p.Sprites(),
		Status:     fmt.Sprintf("%s | %.0f fps", app.emulator.Status(), app.currentFPS),
	}
}

// processInput processes input events from graphics backend
func (app *Application) processInput() {
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
		case graphics.InputEventTypeKey:
			if event.Pressed {
				app.handleKey(event.Key)
			}
		}
	}
}

// colorFilter returns the video adjustment as a snapshot filter, or nil
// when every level is neutral
func (app *Application) colorFilter() snapshot.ColorFilter {
	if app.videoProcessor.IsIdentity() {
		return nil
	}
	return app.videoProcessor.ProcessColor
}

// adjustVideo moves the brightness, contrast and saturation levels by the
// given steps and rebuilds the palette filter
func (app *Application) adjustVideo(brightness, contrast, saturation float32) {
	v := &app.config.Video
	app.setVideoLevels(
		clampLevel(v.Brightness+brightness, videoStep),
		clampLevel(v.Contrast+contrast, videoStep),
		clampLevel(v.Saturation+saturation, 0),
	)
}

// setVideoLevels stores the levels in the config and the video processor
func (app *Application) setVideoLevels(brightness, contrast, saturation float32) {
	v := &app.config.Video
	app.config.UpdateVideo(v.VSync, v.Filter, brightness, contrast, saturation)
	app.videoProcessor.SetBrightness(brightness)
	app.videoProcessor.SetContrast(contrast)
	app.videoProcessor.SetSaturation(saturation)

	if app.emulator != nil {
		app.emulator.SetColorFilter(app.colorFilter())
	}
	if app.config.Debug.EnableLogging {
		log.Printf("[App] Video: brightness %.3f contrast %.3f saturation %.3f", brightness, contrast, saturation)
	}
}

func clampLevel(level, min float32) float32 {
	if level < min {
		return min
	}
	if level > maxVideoLevel {
		return maxVideoLevel
	}
	return level
}

// handleKey applies one viewer control
func (app *Application) handleKey(key graphics.Key) {
	e := app.emulator

	switch key {
	case graphics.KeyEscape:
		app.Stop()
	case graphics.KeySpace:
		app.TogglePause()
	case graphics.KeyS:
		e.Pipeline().Step()
	case graphics.KeyB:
		e.ToggleBackgroundTable()
	case graphics.KeyN:
		e.NextCHRBank()
	case graphics.KeyP:
		name := e.NextPalettePreset()
		log.Printf("[App] Palette preset: %s", name)
	case graphics.KeyT:
		e.ToggleTallSprites()
	case graphics.KeyG:
		e.ToggleGrayscale()
	case graphics.KeyM:
		mode := e.CycleMirroring()
		log.Printf("[App] Mirroring: %s", cartridge.MirrorMode(mode))
	case graphics.KeyUp:
		e.Scroll(0, -1)
	case graphics.KeyDown:
		e.Scroll(0, 1)
	case graphics.KeyLeft:
		e.Scroll(-1, 0)
	case graphics.KeyRight:
		e.Scroll(1, 0)
	case graphics.KeyO:
		if w, ok := graphics.AsEbitengineWindow(app.window); ok {
			w.ToggleOverlay()
		}
	case graphics.Key1:
		app.adjustVideo(-videoStep, 0, 0)
	case graphics.Key2:
		app.adjustVideo(videoStep, 0, 0)
	case graphics.Key3:
		app.adjustVideo(0, -videoStep, 0)
	case graphics.Key4:
		app.adjustVideo(0, videoStep, 0)
	case graphics.Key5:
		app.adjustVideo(0, 0, -videoStep)
	case graphics.Key6:
		app.adjustVideo(0, 0, videoStep)
	case graphics.Key0:
		app.setVideoLevels(1, 1, 1)
	case graphics.KeyF12:
		if path, err := app.Capture(); err != nil {
			log.Printf("[App] Capture failed: %v", err)
		} else {
			log.Printf("[App] Capture written to %s", path)
		}
	}
}

// Capture writes the last presented frame to the capture directory
func (app *Application) Capture() (string, error) {
	if app.scene == nil {
		return "", errors.New("no frame presented yet")
	}
	return app.captures.Capture(app.scene, app.emulator, app.romPath)
}

// updatePerformanceMetrics refreshes the FPS figure once a second and logs
// pipeline counters every StatsInterval frames
func (app *Application) updatePerformanceMetrics() {
	app.frameCount++

	if interval := app.config.Debug.StatsInterval; interval > 0 && app.frameCount-app.lastStatsAt >= uint64(interval) {
		app.lastStatsAt = app.frameCount
		stats := app.emulator.GetStats()
		log.Printf("[FPS] %.1f FPS | Frame: %d | Avg frame: %.2fms | Jitter: %.2fms | Sheets: %d | Cells: %d",
			app.currentFPS, stats.FrameCount,
			float64(stats.AverageFrameTime.Microseconds())/1000.0,
			float64(stats.FrameJitter.Microseconds())/1000.0,
			stats.SheetsRegenerated, stats.CellsRepainted)
	}

	now := time.Now()
	elapsed := now.Sub(app.lastFPSTime)
	if elapsed < time.Second {
		return
	}
	app.currentFPS = float64(app.frameCount-app.lastFPSAt) / elapsed.Seconds()
	app.lastFPSTime = now
	app.lastFPSAt = app.frameCount
}

// Stop stops the application
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the pipeline between frames
func (app *Application) Pause() {
	if app.emulator != nil {
		app.emulator.Pipeline().Pause()
	}
}

// Resume resumes free-running frames
func (app *Application) Resume() {
	if app.emulator != nil {
		app.emulator.Pipeline().Resume()
	}
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	if app.emulator != nil {
		app.emulator.Pipeline().TogglePause()
	}
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the pipeline is paused
func (app *Application) IsPaused() bool {
	return app.emulator != nil && app.emulator.Pipeline().Paused()
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the number of presented frames
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetEmulator returns the emulator, or nil before a cartridge is loaded
func (app *Application) GetEmulator() *Emulator {
	return app.emulator
}

// GetWindow returns the presentation window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// IsHeadless reports whether frames are presented without a display
func (app *Application) IsHeadless() bool {
	return app.headless
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Debug.EnableLogging {
		log.Println("[App] Cleaning up application resources...")
	}

	var lastErr error

	if app.captures != nil {
		if err := app.captures.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[App] Capture manager cleanup error: %v", err)
		}
	}

	if app.emulator != nil {
		app.emulator.Close()
		app.emulator = nil
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[App] Window cleanup error: %v", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[App] Graphics backend cleanup error: %v", err)
		}
	}

	app.initialized = false
	return lastErr
}
