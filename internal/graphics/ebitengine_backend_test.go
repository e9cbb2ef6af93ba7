//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"testing"

	"nesview/internal/palette"
	"nesview/internal/tilecache"
)

func newTestEbitengineWindow(t *testing.T) *EbitengineWindow {
	t.Helper()
	backend := NewEbitengineBackend()
	if err := backend.Initialize(Config{WindowTitle: "Test Window", ShowOverlay: true}); err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}
	window, err := backend.CreateWindow("Test Window", 768, 720)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}
	return window.(*EbitengineWindow)
}

func TestEbitengineBackend_Initialize(t *testing.T) {
	backend := NewEbitengineBackend()

	if err := backend.Initialize(Config{WindowTitle: "Test Window"}); err != nil {
		t.Fatalf("Expected successful initialization, got error: %v", err)
	}
	if err := backend.Initialize(Config{}); err == nil {
		t.Error("Second initialization should fail")
	}
	if backend.GetName() != "Ebitengine" {
		t.Errorf("GetName() = %q", backend.GetName())
	}
}

func TestEbitengineBackend_CreateWindow(t *testing.T) {
	if _, err := NewEbitengineBackend().CreateWindow("x", 1, 1); err == nil {
		t.Error("CreateWindow on an uninitialized backend should fail")
	}

	headless := NewEbitengineBackend()
	if err := headless.Initialize(Config{Headless: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := headless.CreateWindow("x", 1, 1); err == nil {
		t.Error("CreateWindow in headless mode should fail")
	}

	window := newTestEbitengineWindow(t)
	if w, h := window.GetSize(); w != 768 || h != 720 {
		t.Errorf("window size = %dx%d, want 768x720", w, h)
	}
	if _, ok := window.Sheets().(*EbitenSheetStore); !ok {
		t.Errorf("Sheets() = %T, want *EbitenSheetStore", window.Sheets())
	}
	for q, layer := range window.game.layers {
		if layer == nil {
			t.Errorf("layer %d not allocated", q)
		}
	}
}

func TestEbitengineWindow_EmulatorUpdateFunc(t *testing.T) {
	window := newTestEbitengineWindow(t)

	calls := 0
	window.SetEmulatorUpdateFunc(func() error {
		calls++
		return errors.New("emulator error")
	})

	// Emulator errors are logged, not returned to ebiten
	if err := window.game.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("update func called %d times, want 1", calls)
	}

	if err := window.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if !window.ShouldClose() {
		t.Error("ShouldClose() = false after Cleanup")
	}
	if err := window.game.Update(); err == nil {
		t.Error("Update() after Cleanup should terminate the game")
	}
}

func TestEbitengineGame_Layout(t *testing.T) {
	game := &EbitengineGame{}

	if w, h := game.Layout(800, 600); w != 800 || h != 600 {
		t.Errorf("Layout() = %dx%d, want 800x600", w, h)
	}
	if game.windowWidth != 800 || game.windowHeight != 600 {
		t.Errorf("window dimensions = %dx%d", game.windowWidth, game.windowHeight)
	}
}

func TestEbitenSheetStoreKeepsTwelveTextures(t *testing.T) {
	store := NewEbitenSheetStore()
	s := newTestSnapshot()

	tracker := palette.NewTracker()
	cache := tilecache.New(store, store)
	cache.SetDiagnosticFunc(nil)

	var previous [tilecache.SheetCount]tilecache.Handle
	for frame := 0; frame < 6; frame++ {
		// Group 0 changes every frame: one background and two sprite sheets
		s.BackgroundPalette[1] = uint32(frame) << 8
		s.SpritePalette[1] = uint32(frame)
		tracker.Update(s.BackgroundPalette, s.SpritePalette)
		cache.Update(&s.Tiles, tracker, 0, 0, s.BankSignature)

		if got := store.Live(); got != tilecache.SheetCount {
			t.Fatalf("frame %d: %d live textures, want %d", frame, got, tilecache.SheetCount)
		}

		bg, _ := cache.Banks()
		for slot := 0; slot < tilecache.SheetCount; slot++ {
			key := tilecache.KeyForSlot(slot, bg)
			h := cache.Handle(key)
			if store.Sheet(key) != store.images[h] || store.Sheet(key) == nil {
				t.Fatalf("frame %d slot %d: published texture is not handle %d", frame, slot, h)
			}
			if frame > 0 && cache.Updated(key) {
				if h == previous[slot] {
					t.Errorf("frame %d slot %d: regenerated sheet kept handle %d", frame, slot, h)
				}
				if _, ok := store.images[previous[slot]]; ok {
					t.Errorf("frame %d slot %d: old texture %d not released", frame, slot, previous[slot])
				}
			}
			previous[slot] = h
		}
	}
}

func TestEbitenSheetStoreRelease(t *testing.T) {
	store := NewEbitenSheetStore()
	scene := newTestScene(newTestSnapshot(), store)

	h := scene.Sheets.Handle(tilecache.SheetKey{Role: palette.Background})
	store.Release(h)
	store.Release(h)
	if got := store.Live(); got != tilecache.SheetCount-1 {
		t.Errorf("Live() = %d after release, want %d", got, tilecache.SheetCount-1)
	}
}

func TestEbitengineRepaintChangedCellsOnly(t *testing.T) {
	window := newTestEbitengineWindow(t)
	s := newTestSnapshot()
	scene := newTestScene(s, window.game.store)

	// First pass: every cell of every mapped quadrant is new
	if got := window.game.repaint(scene); got != 4*960 {
		t.Errorf("first repaint drew %d cells, want %d", got, 4*960)
	}

	// Same nametables and sheets again: nothing to draw
	scene.Background.Update(s, scene.Sheets)
	for q := 0; q < 4; q++ {
		if n := len(scene.Background.Changed(q)); n != 0 {
			t.Fatalf("quadrant %d reports %d changed cells", q, n)
		}
	}
	if got := window.game.repaint(scene); got != 0 {
		t.Errorf("unchanged frame repainted %d cells, want 0", got)
	}

	// One nametable write touches the cell in both quadrants mirroring it
	s.Nametables[0].Tiles[5] = 1
	scene.Background.Update(s, scene.Sheets)
	if got := window.game.repaint(scene); got != 2 {
		t.Errorf("single write repainted %d cells, want 2", got)
	}
}

func TestEbitengineWindowPresent(t *testing.T) {
	window := newTestEbitengineWindow(t)
	scene := newTestScene(newTestSnapshot(), window.Sheets())

	if err := window.Present(scene); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if window.game.scene != scene {
		t.Error("Present() did not retain the scene for Draw")
	}

	window.ToggleOverlay()
	if window.game.showOverlay {
		t.Error("ToggleOverlay() did not hide the overlay")
	}
	if events := window.PollEvents(); len(events) != 0 {
		t.Errorf("PollEvents() = %v, want none", events)
	}
}
