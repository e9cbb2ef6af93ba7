package graphics

import (
	"fmt"
	"image"
	"log"

	"nesview/internal/snapshot"
	"nesview/internal/tilecache"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements the Window interface for headless operation.
// Sheets live in memory; selected frames are written out as PNG files.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int
	outputPath string
	dumpFrames map[uint64]bool

	store *tilecache.MemoryStore
	frame *image.RGBA
	dumps []string
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	outputPath := b.config.OutputDir
	if outputPath == "" {
		outputPath = "frame_output"
	}

	dumpFrames := make(map[uint64]bool, len(b.config.DumpFrames))
	for _, f := range b.config.DumpFrames {
		dumpFrames[f] = true
	}

	return &HeadlessWindow{
		title:      title,
		width:      width,
		height:     height,
		running:    true,
		outputPath: outputPath,
		dumpFrames: dumpFrames,
		store:      tilecache.NewMemoryStore(),
		frame:      image.NewRGBA(image.Rect(0, 0, snapshot.ViewportWidth, snapshot.ViewportHeight)),
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// HeadlessWindow implementation

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns empty events list (no input in headless mode)
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// Sheets returns the in-memory sheet store
func (w *HeadlessWindow) Sheets() tilecache.SheetStore {
	return w.store
}

// Present composes the frame and dumps it when requested
func (w *HeadlessWindow) Present(scene *Scene) error {
	w.frameCount++
	ComposeFrame(w.frame, scene)

	if !w.dumpFrames[scene.Frame] {
		return nil
	}
	return w.dump(scene)
}

// dump writes the composed frame and the published sheets
func (w *HeadlessWindow) dump(scene *Scene) error {
	paths, err := DumpScene(w.outputPath, scene, w.frame)
	if err != nil {
		return err
	}
	w.dumps = append(w.dumps, paths...)
	log.Printf("[Headless] Frame %d written to %s", scene.Frame, w.outputPath)
	return nil
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// GetFrameCount returns the number of presented frames
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// Frame returns the last composed frame
func (w *HeadlessWindow) Frame() *image.RGBA {
	return w.frame
}

// Store returns the concrete in-memory store
func (w *HeadlessWindow) Store() *tilecache.MemoryStore {
	return w.store
}

// Dumps returns the files written so far
func (w *HeadlessWindow) Dumps() []string {
	return w.dumps
}
