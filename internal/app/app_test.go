package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nesview/internal/cartridge"
	"nesview/internal/graphics"
	"nesview/internal/tilecache"
)

func newTestApplication(t *testing.T) (*Application, string) {
	t.Helper()
	dir := t.TempDir()

	config := NewConfig()
	config.Paths.Captures = dir
	config.Viewer.DumpFrames = []uint64{1, 5}
	config.Debug.LogDiagnostics = false

	application, err := NewApplicationWithConfig(config, true)
	if err != nil {
		t.Fatalf("NewApplicationWithConfig() error = %v", err)
	}
	t.Cleanup(func() {
		if err := application.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})
	return application, dir
}

func TestApplicationHeadlessBackend(t *testing.T) {
	application, _ := newTestApplication(t)

	if !application.IsHeadless() {
		t.Error("IsHeadless() = false")
	}
	if err := application.Run(); err == nil {
		t.Error("Run() without a cartridge should fail")
	}
	if application.GetEmulator() != nil {
		t.Error("emulator created before a cartridge was loaded")
	}
}

func TestApplicationRunFramesWritesDumps(t *testing.T) {
	application, dir := newTestApplication(t)
	if err := application.LoadDemo(); err != nil {
		t.Fatalf("LoadDemo() error = %v", err)
	}

	if err := application.RunFrames(10); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	if got := application.GetFrameCount(); got != 10 {
		t.Errorf("GetFrameCount() = %d, want 10", got)
	}

	for _, name := range []string{"frame_000001.png", "sheets_000001.png", "frame_000005.png", "sheets_000005.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("dump %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "frame_000002.png")); err == nil {
		t.Error("frame 2 was dumped without being requested")
	}
}

func TestApplicationCapture(t *testing.T) {
	application, dir := newTestApplication(t)
	if _, err := application.Capture(); err == nil {
		t.Error("Capture() before any frame should fail")
	}

	if err := application.LoadDemo(); err != nil {
		t.Fatalf("LoadDemo() error = %v", err)
	}
	if err := application.RunFrames(10); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}

	path, err := application.Capture()
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if filepath.Base(path) != "report_000010.json" {
		t.Errorf("report path = %s", path)
	}

	report, err := application.captures.LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport() error = %v", err)
	}
	if report.Frame != 10 {
		t.Errorf("report frame = %d, want 10", report.Frame)
	}
	if report.Mapper != 3 || report.Battery {
		t.Errorf("report cartridge = mapper %d battery %v, want mapper 3 without battery", report.Mapper, report.Battery)
	}
	if report.Mirroring != "vertical" {
		t.Errorf("report mirroring = %q, want vertical", report.Mirroring)
	}
	if len(report.Sprites) != demoSprites {
		t.Errorf("report sprites = %d, want %d", len(report.Sprites), demoSprites)
	}
	if len(report.BackgroundPalette) != 16 || !strings.HasPrefix(report.BackgroundPalette[0], "#") {
		t.Errorf("background palette = %v", report.BackgroundPalette)
	}
	if len(report.Files) != 2 {
		t.Errorf("report files = %v, want frame and sheets", report.Files)
	}
	for _, f := range report.Files {
		if filepath.Dir(f) != dir {
			t.Errorf("capture file %s outside %s", f, dir)
		}
	}
	if application.captures.Count() != 1 {
		t.Errorf("Count() = %d, want 1", application.captures.Count())
	}
}

func TestApplicationCaptureOnFinish(t *testing.T) {
	application, dir := newTestApplication(t)
	application.GetConfig().Debug.CaptureOnFinish = true

	if err := application.LoadDemo(); err != nil {
		t.Fatalf("LoadDemo() error = %v", err)
	}
	if err := application.RunFrames(3); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "report_000003.json")); err != nil {
		t.Errorf("report not written on finish: %v", err)
	}
}

func TestApplicationHandleKey(t *testing.T) {
	application, _ := newTestApplication(t)
	if err := application.LoadDemo(); err != nil {
		t.Fatalf("LoadDemo() error = %v", err)
	}
	if err := application.RunFrames(1); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	e := application.GetEmulator()

	application.handleKey(graphics.KeySpace)
	if !application.IsPaused() {
		t.Fatal("Space did not pause")
	}
	if err := application.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if got := application.GetFrameCount(); got != 1 {
		t.Errorf("frame count while paused = %d, want 1", got)
	}

	application.handleKey(graphics.KeyS)
	if err := application.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if got := application.GetFrameCount(); got != 2 {
		t.Errorf("frame count after step = %d, want 2", got)
	}

	application.handleKey(graphics.KeyN)
	if e.CHRBank() != 1 {
		t.Errorf("CHRBank() = %d after N, want 1", e.CHRBank())
	}

	application.handleKey(graphics.KeyRight)
	application.handleKey(graphics.KeyDown)
	if x, y := e.ScrollPosition(); x != 8 || y != 8 {
		t.Errorf("scroll = (%d,%d), want (8,8)", x, y)
	}

	application.handleKey(graphics.KeyB)
	if ctrl, _ := e.PPU().ControlRegisters(); ctrl&ctrlBackground == 0 {
		t.Error("B did not swap the background table")
	}

	application.handleKey(graphics.KeyEscape)
	if application.IsRunning() {
		t.Error("Escape did not stop the application")
	}
}

func TestApplicationCaptureBatteryCartridge(t *testing.T) {
	application, dir := newTestApplication(t)

	rom, err := cartridge.NewROMBuilder().WithBattery().Build()
	if err != nil {
		t.Fatal(err)
	}
	romPath := filepath.Join(dir, "battery.nes")
	if err := os.WriteFile(romPath, rom, 0644); err != nil {
		t.Fatal(err)
	}
	if err := application.LoadROM(romPath); err != nil {
		t.Fatalf("LoadROM() error = %v", err)
	}
	if err := application.RunFrames(1); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}

	path, err := application.Capture()
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	report, err := application.captures.LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport() error = %v", err)
	}
	if !report.Battery || report.ROMPath != romPath {
		t.Errorf("report battery = %v rom = %q, want true %q", report.Battery, report.ROMPath, romPath)
	}
}

func TestApplicationReloadReleasesSheets(t *testing.T) {
	application, _ := newTestApplication(t)
	store := application.GetWindow().(*graphics.HeadlessWindow).Store()

	for i := 0; i < 3; i++ {
		if err := application.LoadDemo(); err != nil {
			t.Fatalf("LoadDemo() error = %v", err)
		}
		if err := application.RunFrames(1); err != nil {
			t.Fatalf("RunFrames() error = %v", err)
		}
		if got := store.Live(); got != tilecache.SheetCount {
			t.Errorf("load %d: %d live sheets, want %d", i, got, tilecache.SheetCount)
		}
	}

	if err := application.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if got := store.Live(); got != 0 {
		t.Errorf("%d sheets left after Cleanup, want 0", got)
	}
}

func TestApplicationVideoKeys(t *testing.T) {
	application, _ := newTestApplication(t)
	if err := application.LoadDemo(); err != nil {
		t.Fatalf("LoadDemo() error = %v", err)
	}
	if err := application.RunFrames(1); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	e := application.GetEmulator()
	plain := e.Pipeline().Snapshot().SpritePalette

	application.handleKey(graphics.Key1)
	video := application.GetConfig().Video
	if video.Brightness != 1-videoStep || video.Contrast != 1 || video.Saturation != 1 {
		t.Errorf("video after 1 = %+v, want brightness %v", video, 1-videoStep)
	}
	if application.videoProcessor.IsIdentity() {
		t.Error("processor still neutral after a brightness step")
	}
	if err := application.RunFrames(1); err != nil {
		t.Fatal(err)
	}
	if got := e.GetStats().LastSheets; got == 0 {
		t.Error("brightness change regenerated no sheets")
	}
	if e.Pipeline().Snapshot().SpritePalette == plain {
		t.Error("palette colors unchanged after a brightness step")
	}

	for i := 0; i < 40; i++ {
		application.handleKey(graphics.Key5)
	}
	if got := application.GetConfig().Video.Saturation; got != 0 {
		t.Errorf("saturation = %v after repeated steps down, want 0", got)
	}
	for i := 0; i < 40; i++ {
		application.handleKey(graphics.Key4)
	}
	if got := application.GetConfig().Video.Contrast; got != maxVideoLevel {
		t.Errorf("contrast = %v after repeated steps up, want %v", got, maxVideoLevel)
	}

	application.handleKey(graphics.Key0)
	if !application.videoProcessor.IsIdentity() {
		t.Error("0 did not restore neutral levels")
	}
	if err := application.RunFrames(1); err != nil {
		t.Fatal(err)
	}
	if e.Pipeline().Snapshot().SpritePalette != plain {
		t.Error("palette colors not restored after reset")
	}
}

func TestApplicationLoadROMMissingFile(t *testing.T) {
	application, dir := newTestApplication(t)

	err := application.LoadROM(filepath.Join(dir, "missing.nes"))
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("LoadROM() error = %v, want ApplicationError", err)
	}
	if appErr.Component != "cartridge" {
		t.Errorf("Component = %q, want cartridge", appErr.Component)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error %v should wrap os.ErrNotExist", err)
	}
}
