package pipeline

import (
	"testing"

	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/tilecache"
)

// fakeCore is a scripted chip that counts frames and exposes its state
type fakeCore struct {
	steps int

	paletteRAM [32]uint8
	nametables [snapshot.NametableCount]*snapshot.Nametable
	mirror     snapshot.MirrorMap
	tiles      [snapshot.TileCount]snapshot.Tile
	signature  snapshot.BankSignature
	oam        [256]uint8
	t          uint16
	fineX      uint8
	ctrl, mask uint8
}

func (f *fakeCore) StepFrame() { f.steps++ }

func (f *fakeCore) PaletteRAM() [32]uint8                      { return f.paletteRAM }
func (f *fakeCore) Nametable(physical int) *snapshot.Nametable { return f.nametables[physical] }
func (f *fakeCore) MirrorMap() snapshot.MirrorMap              { return f.mirror }
func (f *fakeCore) BankSignature() snapshot.BankSignature      { return f.signature }
func (f *fakeCore) OAM() *[256]uint8                           { return &f.oam }
func (f *fakeCore) ScrollLatch() (uint16, uint8)               { return f.t, f.fineX }
func (f *fakeCore) ControlRegisters() (uint8, uint8)           { return f.ctrl, f.mask }
func (f *fakeCore) FrameCount() uint64                         { return uint64(f.steps) }

func (f *fakeCore) PatternTiles(dst *[snapshot.TileCount]*snapshot.Tile) {
	for i := range dst {
		dst[i] = &f.tiles[i]
	}
}

func newFakeCore() *fakeCore {
	f := &fakeCore{
		mirror: snapshot.MirrorMap{0, 1, 0, 1},
		mask:   0x18,
	}
	f.nametables[0] = &snapshot.Nametable{}
	f.nametables[1] = &snapshot.Nametable{}
	for i := range f.tiles {
		for p := range f.tiles[i] {
			f.tiles[i][p] = uint8(i+p) & 0x03
		}
	}
	return f
}

func newTestPipeline() (*Pipeline, *fakeCore, *tilecache.MemoryStore) {
	core := newFakeCore()
	store := tilecache.NewMemoryStore()
	p := New(core, snapshot.NewExtractor(core), store, store)
	p.Sheets().SetDiagnosticFunc(nil)
	return p, core, store
}

func TestAdvanceProcessesFrames(t *testing.T) {
	p, core, store := newTestPipeline()

	if !p.Advance() {
		t.Fatal("Expected first Advance to process a frame")
	}
	if core.steps != 1 || p.Frames() != 1 {
		t.Errorf("Expected 1 step and 1 frame, got %d and %d", core.steps, p.Frames())
	}
	if got := p.Sheets().UpdatedSet().Count(); got != tilecache.SheetCount {
		t.Errorf("Expected all %d sheets on the first frame, got %d", tilecache.SheetCount, got)
	}
	if store.Publishes() != 1 {
		t.Errorf("Expected 1 publish, got %d", store.Publishes())
	}

	p.Advance()
	if got := p.Sheets().UpdatedSet().Count(); got != 0 {
		t.Errorf("Expected no sheets on an identical frame, got %d", got)
	}
	if p.Background().Repaints() != 0 {
		t.Errorf("Expected no background repaints, got %d", p.Background().Repaints())
	}
	if store.Publishes() != 1 {
		t.Errorf("Expected no further publish, got %d", store.Publishes())
	}
}

func TestPauseAndStep(t *testing.T) {
	p, core, _ := newTestPipeline()

	p.Pause()
	if p.Advance() {
		t.Error("Expected paused Advance to do nothing")
	}
	if core.steps != 0 {
		t.Errorf("Expected core untouched while paused, got %d steps", core.steps)
	}

	if p.Ready() {
		t.Error("Expected paused pipeline not to be ready")
	}
	p.Step()
	if !p.Ready() {
		t.Error("Expected a pending step to make the pipeline ready")
	}
	if !p.Advance() {
		t.Error("Expected a stepped Advance to process a frame")
	}
	if p.Advance() {
		t.Error("Expected a single step to process exactly one frame")
	}
	if core.steps != 1 {
		t.Errorf("Expected 1 step, got %d", core.steps)
	}

	p.TogglePause()
	if p.Paused() {
		t.Error("Expected TogglePause to resume")
	}
	p.Advance()
	p.Advance()
	if core.steps != 3 {
		t.Errorf("Expected 3 steps, got %d", core.steps)
	}

	// Step outside of pause is ignored
	p.Step()
	p.Pause()
	if p.Advance() {
		t.Error("Expected a step requested while running to be dropped")
	}
}

// TestPaletteFeedsSheetsSameFrame tests that a palette edit reaches the
// sheets and background in the frame it happens
func TestPaletteFeedsSheetsSameFrame(t *testing.T) {
	p, core, _ := newTestPipeline()
	p.Advance()

	core.paletteRAM[2*4+1] = 0x16
	p.Advance()

	want := tilecache.SheetKey{Role: palette.Background, Bank: 0, Group: 2}
	if !p.Sheets().Updated(want) {
		t.Error("Expected background group 2 sheet regenerated")
	}
	if got := p.Sheets().UpdatedSet().Count(); got != 1 {
		t.Errorf("Expected exactly 1 sheet regenerated, got %d", got)
	}
	// Every cell uses attribute 0, group 0, so nothing repaints
	if p.Background().Repaints() != 0 {
		t.Errorf("Expected no repaints, got %d", p.Background().Repaints())
	}
}

func TestBackdropColor(t *testing.T) {
	p, core, _ := newTestPipeline()
	p.extractor.SetColorFilter(func(uint32) uint32 { return 0xFF0000 })
	core.paletteRAM[0] = 0x16

	p.Advance()

	if got := p.BackgroundColor(); got != (palette.Color{R: 1}) {
		t.Errorf("Expected red backdrop, got %+v", got)
	}
}

func TestScrollReachesBackground(t *testing.T) {
	p, core, _ := newTestPipeline()
	core.t = 10 | 1<<10
	core.fineX = 3

	p.Advance()

	x, y := p.Background().Scroll()
	if x != 339 || y != 0 {
		t.Errorf("Expected scroll (339,0), got (%d,%d)", x, y)
	}
	if s := p.Snapshot(); s == nil || s.Frame != 1 {
		t.Error("Expected the last snapshot to be retained")
	}
}
