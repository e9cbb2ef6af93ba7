// Package main implements the nesview executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"nesview/internal/app"
	"nesview/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to an iNES ROM whose CHR data is shown (built-in demo if empty)")
		configFile = flag.String("config", "", "Path to configuration file")
		debug      = flag.Bool("debug", false, "Enable debug logging and the status overlay")
		nogui      = flag.Bool("nogui", false, "Run without a window (headless mode)")
		frames     = flag.Int("frames", 0, "Frames to run in headless mode (0 = config value)")
		dump       = flag.String("dump", "", "Comma-separated frame numbers to write as PNG")
		preset     = flag.Int("preset", -1, "Palette preset index for the demo scene")
		capture    = flag.Bool("capture", false, "Write a capture report when a headless run finishes")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVer {
		version.WriteBuildInfo(os.Stdout)
		os.Exit(0)
	}

	dumpFrames, err := parseFrameList(*dump)
	if err != nil {
		log.Fatalf("Invalid -dump list: %v", err)
	}

	setupGracefulShutdown()

	fmt.Printf("🎮 %s starting...\n", version.GetDetailedVersion())

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	// Flags override the file before the backend is created
	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		log.Printf("Could not load config from %s, using defaults: %v", configPath, err)
	}
	if *debug {
		config.Debug.EnableLogging = true
		config.Debug.ShowOverlay = true
		config.Debug.StatsInterval = 60
	}
	if *frames > 0 {
		config.Viewer.HeadlessFrames = *frames
	}
	if len(dumpFrames) > 0 {
		config.Viewer.DumpFrames = dumpFrames
	}
	if *preset >= 0 {
		config.Viewer.PalettePreset = *preset
	}
	if *capture {
		config.Debug.CaptureOnFinish = true
	}

	application, err := app.NewApplicationWithConfig(config, *nogui)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	if *romFile != "" {
		fmt.Printf("📁 Loading ROM: %s\n", *romFile)
		err = application.LoadROM(*romFile)
	} else {
		fmt.Println("📁 No ROM given, loading the built-in demo cartridge")
		err = application.LoadDemo()
	}
	if err != nil {
		log.Fatalf("Failed to load cartridge: %v", err)
	}

	if application.IsHeadless() {
		runHeadlessMode(application)
	} else if err := runGUIMode(application); err != nil {
		log.Fatalf("GUI mode failed: %v", err)
	}

	fmt.Println("👋 Viewer shutting down...")
}

// runGUIMode runs the windowed viewer until it is closed
func runGUIMode(application *app.Application) error {
	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("🖥️  Window: %dx%d (Scale: %dx), filter %s, VSync: %s\n",
		windowWidth, windowHeight, config.Window.Scale,
		config.Video.Filter, enabledString(config.Video.VSync))

	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %w", err)
	}

	printSessionStats(application)
	return nil
}

// runHeadlessMode runs the configured number of frames and reports where
// dumps went
func runHeadlessMode(application *app.Application) {
	config := application.GetConfig()
	fmt.Printf("🖥️  Headless mode: %d frames, output in %s\n",
		config.Viewer.HeadlessFrames, config.Paths.Captures)

	if err := application.Run(); err != nil {
		log.Fatalf("Headless run failed: %v", err)
	}

	printSessionStats(application)
	for _, frame := range config.Viewer.DumpFrames {
		fmt.Printf("   📸 frame %d -> %s/frame_%06d.png\n", frame, config.Paths.Captures, frame)
	}
}

func printSessionStats(application *app.Application) {
	fmt.Printf("📊 Session Statistics:\n")
	fmt.Printf("   Frames presented: %d\n", application.GetFrameCount())
	fmt.Printf("   Session time: %v\n", application.GetUptime())
	fmt.Printf("   Average FPS: %.1f\n", application.GetFPS())

	if e := application.GetEmulator(); e != nil {
		stats := e.GetStats()
		fmt.Printf("   Sheets regenerated: %d\n", stats.SheetsRegenerated)
		fmt.Printf("   Cells repainted: %d\n", stats.CellsRepainted)
		fmt.Printf("   Average frame time: %v\n", stats.AverageFrameTime)
		fmt.Printf("   Core frames: %d (last %v)\n", stats.CoreFrames, stats.LastCoreTime)
	}
}

// parseFrameList parses "30,60,119" into frame numbers
func parseFrameList(list string) ([]uint64, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var frames []uint64
	for _, field := range strings.Split(list, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("frame %q: %w", field, err)
		}
		frames = append(frames, n)
	}
	return frames, nil
}

// setupGracefulShutdown sets up signal handling for graceful shutdown
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\n🛑 Interrupt received, shutting down gracefully...")
		os.Exit(0)
	}()
}

// enabledString returns "enabled" or "disabled" based on boolean value
func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printUsage() {
	fmt.Println("nesview - NES PPU cache viewer")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Shows the pattern tables, nametables and sprites of a NES cartridge")
	fmt.Println("  through a snapshot-driven tile cache that only redraws what changed.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nesview [options]                    # Built-in demo cartridge")
	fmt.Println("  nesview -rom <file> [options]        # Show a ROM's CHR data")
	fmt.Println("  nesview -nogui -dump 1,60 [options]  # Headless run with PNG dumps")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS:")
	fmt.Println("    Arrow Keys        - Scroll by one tile")
	fmt.Println("    Space             - Pause / resume")
	fmt.Println("    S                 - Step one frame while paused")
	fmt.Println("    B                 - Swap background pattern table")
	fmt.Println("    N                 - Next CHR bank")
	fmt.Println("    P                 - Next palette preset")
	fmt.Println("    T                 - Toggle 8x16 sprites")
	fmt.Println("    G                 - Toggle grayscale")
	fmt.Println("    M                 - Cycle nametable mirroring")
	fmt.Println("    O                 - Toggle status overlay")
	fmt.Println("    1 / 2             - Brightness down / up")
	fmt.Println("    3 / 4             - Contrast down / up")
	fmt.Println("    5 / 6             - Saturation down / up")
	fmt.Println("    0                 - Reset video levels")
	fmt.Println("    F12               - Capture frame, sheets and report")
	fmt.Println("    Escape            - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Printf("  Config file: %s\n", app.GetDefaultConfigPath())
	fmt.Println("  Captures:    ./captures/")
	fmt.Println()
	fmt.Println("SUPPORTED FORMATS:")
	fmt.Println("  - iNES (.nes), NROM (Mapper 0) and CNROM (Mapper 3)")
}
