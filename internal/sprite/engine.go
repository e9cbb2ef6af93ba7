// Package sprite refreshes the fixed pool of sprite views every frame.
// Object attribute memory is fully volatile, so nothing is diffed.
package sprite

import (
	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/tilecache"
)

// SheetSource reports which sheets were regenerated this frame.
type SheetSource interface {
	Updated(key tilecache.SheetKey) bool
}

// Depth orders a sprite against the background layer.
type Depth uint8

const (
	InFront Depth = iota
	Behind
)

// TileRef addresses one 8x8 tile inside a sheet.
type TileRef struct {
	Index  uint8 // tile index within the bank
	SheetX int
	SheetY int
}

func refFor(index uint8) TileRef {
	x, y := tilecache.TilePosition(int(index))
	return TileRef{Index: index, SheetX: x, SheetY: y}
}

// View is the presentation state of one sprite.
type View struct {
	Visible bool
	X, Y    int // screen position, Y already offset by one scanline

	Sheet  tilecache.SheetKey
	Top    TileRef
	Bottom TileRef // only meaningful when Tall
	Tall   bool

	FlipH, FlipV bool
	Depth        Depth

	// SheetRefreshed is set when the backing sheet was regenerated this frame.
	SheetRefreshed bool
}

// Height returns the sprite height in pixels.
func (v *View) Height() int {
	if v.Tall {
		return 16
	}
	return 8
}

// Engine owns the sprite views.
type Engine struct {
	views   [snapshot.SpriteCount]View
	visible bool
	shown   int
}

// NewEngine creates an engine with every view hidden.
func NewEngine() *Engine {
	return &Engine{}
}

// Update recomputes all 64 views.
func (e *Engine) Update(s *snapshot.Snapshot, sheets SheetSource) {
	e.visible = s.Control.ShowSprites
	e.shown = 0

	tall := s.Control.TallSprites
	height := s.Control.SpriteHeight()

	for i := range s.Sprites {
		spr := &s.Sprites[i]
		v := &e.views[i]

		v.X = int(spr.X)
		v.Y = int(spr.Y) + 1
		v.Tall = tall
		v.FlipH = spr.FlipH
		v.FlipV = spr.FlipV
		v.Depth = InFront
		if spr.BehindBackground {
			v.Depth = Behind
		}

		// Nothing of the sprite lands on a visible scanline
		v.Visible = v.Y < snapshot.ViewportHeight && v.Y+height > 0
		if !v.Visible {
			continue
		}
		e.shown++

		bank := s.Control.SpriteBank()
		top := spr.Tile
		if tall {
			bank = int(spr.Tile & 0x01)
			top = spr.Tile &^ 0x01
			bottom := top + 1
			if spr.FlipV {
				top, bottom = bottom, top
			}
			v.Bottom = refFor(bottom)
		} else {
			v.Bottom = TileRef{}
		}
		v.Top = refFor(top)

		v.Sheet = tilecache.SheetKey{Role: palette.Sprite, Bank: bank, Group: int(spr.Palette & 0x03)}
		v.SheetRefreshed = sheets.Updated(v.Sheet)
	}
}

// View returns a copy of sprite i.
func (e *Engine) View(i int) View {
	return e.views[i]
}

// Views returns all views. The array must be treated as read-only.
func (e *Engine) Views() *[snapshot.SpriteCount]View {
	return &e.views
}

// Visible reports whether the sprite layer is enabled.
func (e *Engine) Visible() bool {
	return e.visible
}

// Shown returns the number of sprites that survived culling in the last Update.
func (e *Engine) Shown() int {
	return e.shown
}
