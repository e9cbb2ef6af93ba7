package graphics

import (
	"nesview/internal/background"
	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/sprite"
	"nesview/internal/tilecache"
)

const (
	testRed   = 0xFF0000
	testGreen = 0x00FF00
	testBlue  = 0x0000FF
)

// newTestSnapshot returns a frame with a red backdrop, a green tile in cell 0
// of nametable 0, and a blue sprite at (16,10). Every other sprite is hidden.
func newTestSnapshot() *snapshot.Snapshot {
	var tiles [snapshot.TileCount]snapshot.Tile
	for i := range tiles[1] {
		tiles[1][i] = 1
	}
	tiles[2][0] = 1 // single pixel in the top-left corner

	s := &snapshot.Snapshot{Frame: 5}
	for i := range s.Tiles {
		s.Tiles[i] = &tiles[i]
	}

	s.BackgroundPalette[0] = testRed
	s.BackgroundPalette[1] = testGreen
	s.SpritePalette[0] = testRed
	s.SpritePalette[1] = testBlue

	s.Nametables[0] = &snapshot.Nametable{}
	s.Nametables[1] = &snapshot.Nametable{}
	s.Nametables[0].Tiles[0] = 1
	s.MirrorMap = snapshot.MirrorMap{0, 0, 1, 1}

	for i := range s.Sprites {
		s.Sprites[i].Y = 0xEF
	}
	s.Sprites[0] = snapshot.Sprite{X: 16, Y: 9, Tile: 1}

	s.Control.ShowBackground = true
	s.Control.ShowSprites = true
	return s
}

// newTestScene runs one pass of every cache over s
func newTestScene(s *snapshot.Snapshot, store tilecache.SheetStore) *Scene {
	tracker := palette.NewTracker()
	tracker.Update(s.BackgroundPalette, s.SpritePalette)

	cache := tilecache.New(store, store)
	cache.SetDiagnosticFunc(nil)
	cache.Update(&s.Tiles, tracker, s.Control.BackgroundBank(), s.Control.SpriteBank(), s.BankSignature)

	bg := background.NewEngine()
	bg.Update(s, cache)
	spr := sprite.NewEngine()
	spr.Update(s, cache)

	return &Scene{
		Frame:      s.Frame,
		Backdrop:   tracker.BackgroundColor(),
		Sheets:     cache,
		Background: bg,
		Sprites:    spr,
		Status:     "test",
	}
}
