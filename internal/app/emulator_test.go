package app

import (
	"strings"
	"testing"
	"time"

	"nesview/internal/memory"
	"nesview/internal/snapshot"
)

func TestEmulatorFirstFrameBuildsAllSheets(t *testing.T) {
	e := newTestEmulator(t)

	if !e.Update() {
		t.Fatal("Update() = false on a running pipeline")
	}
	stats := e.GetStats()
	if stats.FrameCount != 1 {
		t.Errorf("FrameCount = %d, want 1", stats.FrameCount)
	}
	if stats.LastSheets != 12 {
		t.Errorf("LastSheets = %d, want 12", stats.LastSheets)
	}
	if stats.SpritesShown != demoSprites {
		t.Errorf("SpritesShown = %d, want %d", stats.SpritesShown, demoSprites)
	}

	e.Update()
	if got := e.GetStats().LastSheets; got != 0 {
		t.Errorf("second frame regenerated %d sheets, want 0", got)
	}
}

func TestEmulatorNextCHRBank(t *testing.T) {
	e := newTestEmulator(t)
	e.Update()
	before := e.Pipeline().Snapshot().BankSignature

	e.NextCHRBank()
	if e.CHRBank() != 1 {
		t.Fatalf("CHRBank() = %d, want 1", e.CHRBank())
	}
	e.Update()

	if e.Pipeline().Snapshot().BankSignature == before {
		t.Error("bank signature unchanged after bank switch")
	}
	if got := e.GetStats().LastSheets; got != 12 {
		t.Errorf("sheets after bank switch = %d, want 12", got)
	}

	for i := 0; i < demoCHRBanks-1; i++ {
		e.NextCHRBank()
	}
	if e.CHRBank() != 0 {
		t.Errorf("CHRBank() = %d after a full cycle, want 0", e.CHRBank())
	}
}

func TestEmulatorToggleBackgroundTable(t *testing.T) {
	e := newTestEmulator(t)
	e.Update()

	e.ToggleBackgroundTable()
	e.Update()

	if bg, _ := e.Pipeline().Sheets().Banks(); bg != 1 {
		t.Errorf("background bank = %d, want 1", bg)
	}
	if got := e.GetStats().LastSheets; got != snapshot.GroupCount {
		t.Errorf("sheets after table swap = %d, want %d", got, snapshot.GroupCount)
	}
}

func TestEmulatorScrollWraps(t *testing.T) {
	e := newTestEmulator(t)

	tests := []struct {
		dx, dy int
		wantX  int
		wantY  int
	}{
		{-1, 0, 504, 0},
		{0, -1, 504, 472},
		{1, 1, 0, 0},
		{65, 61, 8, 8},
	}
	for _, tt := range tests {
		e.Scroll(tt.dx, tt.dy)
		if x, y := e.ScrollPosition(); x != tt.wantX || y != tt.wantY {
			t.Errorf("Scroll(%d,%d) -> (%d,%d), want (%d,%d)", tt.dx, tt.dy, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestEmulatorScrollSurvivesVRAMWrites(t *testing.T) {
	e := newTestEmulator(t)
	e.Scroll(2, 1)

	for i := 0; i < 30; i++ {
		e.Update()
	}

	if got := e.Memory().Nametable(0).Tiles[counterCell]; got != 2 {
		t.Errorf("counter tile = %d, want 2", got)
	}
	if x, y := e.Pipeline().Background().Scroll(); x != 16 || y != 8 {
		t.Errorf("background scroll = (%d,%d), want (16,8)", x, y)
	}
}

func TestEmulatorAnimatesFromVBlank(t *testing.T) {
	e := newTestEmulator(t)
	oam := e.PPU().OAM()
	y0, x0 := oam[0], oam[3]

	e.Update()
	if oam[0] != y0+1 || oam[3] != x0+1 {
		t.Errorf("sprite 0 after one frame = (y %d, x %d), want (%d, %d)", oam[0], oam[3], y0+1, x0+1)
	}
	if got := e.scene.Frames(); got != 1 {
		t.Errorf("scene frames = %d, want 1", got)
	}

	stats := e.GetStats()
	if stats.CoreFrames != 1 || stats.CoreFrames != e.PPU().FrameCount() {
		t.Errorf("CoreFrames = %d, PPU frames = %d, want 1", stats.CoreFrames, e.PPU().FrameCount())
	}
	if stats.LastCoreTime <= 0 || stats.LastCoreTime > stats.LastFrameTime {
		t.Errorf("LastCoreTime = %v, LastFrameTime = %v", stats.LastCoreTime, stats.LastFrameTime)
	}

	// Register writes between frames keep NMI enabled without re-entering it
	e.ToggleTallSprites()
	e.Scroll(1, 0)
	if got := e.scene.Frames(); got != 1 {
		t.Errorf("scene frames after register writes = %d, want 1", got)
	}

	e.Pipeline().Pause()
	e.Update()
	if got := e.scene.Frames(); got != 1 {
		t.Errorf("scene animated while paused: %d frames", got)
	}
}

func TestEmulatorNMIDisabledStopsAnimation(t *testing.T) {
	e := newTestEmulator(t)
	ctrl, _ := e.vram.control()
	e.vram.setControl(ctrl &^ ctrlNMI)

	e.Update()
	e.Update()
	if got := e.scene.Frames(); got != 0 {
		t.Errorf("scene frames = %d with NMI disabled, want 0", got)
	}
	if got := e.GetStats().CoreFrames; got != 2 {
		t.Errorf("CoreFrames = %d, want 2", got)
	}
}

func TestEmulatorCycleMirroring(t *testing.T) {
	e := newTestEmulator(t)

	if got := e.CycleMirroring(); got != memory.MirrorSingleScreen0 {
		t.Errorf("CycleMirroring() = %d, want single-screen 0", got)
	}
	for i := 0; i < 4; i++ {
		e.CycleMirroring()
	}
	if got := e.Memory().Mirroring(); got != memory.MirrorVertical {
		t.Errorf("mirroring after full cycle = %d, want vertical", got)
	}
}

func TestEmulatorPauseAndStep(t *testing.T) {
	e := newTestEmulator(t)
	e.Pipeline().Pause()

	if e.Update() {
		t.Error("Update() ran while paused")
	}
	e.Pipeline().Step()
	if !e.Update() {
		t.Error("Update() did not run after Step")
	}
	if e.Update() {
		t.Error("Step allowed more than one frame")
	}
	if !strings.Contains(e.Status(), "PAUSED") {
		t.Errorf("Status() = %q, want PAUSED marker", e.Status())
	}
}

func TestEmulatorStatus(t *testing.T) {
	e := newTestEmulator(t)
	e.Update()
	e.ToggleTallSprites()
	e.ToggleGrayscale()

	status := e.Status()
	for _, want := range []string{"F1", "vertical", "classic", "sheets 12", "8x16", "gray"} {
		if !strings.Contains(status, want) {
			t.Errorf("Status() = %q, missing %q", status, want)
		}
	}
}

func TestEmulatorPalettePresets(t *testing.T) {
	e := newTestEmulator(t)
	e.Update()

	if name := e.NextPalettePreset(); name != "dusk" {
		t.Errorf("NextPalettePreset() = %q, want dusk", name)
	}
	e.Update()
	if got := e.GetStats().LastSheets; got == 0 {
		t.Error("palette change regenerated no sheets")
	}

	e.SetPalettePreset(-1)
	if pal := e.Memory().PaletteRAM(); pal[1] != palettePresets[2].Entries[1] {
		t.Errorf("palette[1] = %#x, want last preset", pal[1])
	}
}

func TestCircularTimingBuffer(t *testing.T) {
	b := NewCircularTimingBuffer(2)
	if b.GetAverage() != 0 || b.GetJitter() != 0 {
		t.Error("empty buffer should report zero")
	}

	b.Add(10 * time.Millisecond)
	b.Add(20 * time.Millisecond)
	b.Add(30 * time.Millisecond)

	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
	if got := b.GetAverage(); got != 25*time.Millisecond {
		t.Errorf("GetAverage() = %v, want 25ms", got)
	}
	if got := b.GetJitter(); got != 5*time.Millisecond {
		t.Errorf("GetJitter() = %v, want 5ms", got)
	}

	b.Reset()
	if b.Len() != 0 || b.GetAverage() != 0 {
		t.Error("Reset() left measurements behind")
	}
}
