// Package background keeps the retained background tile grid in step with
// the nametables, touching only the cells that changed.
package background

import (
	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/tilecache"
)

// SheetSource reports which sheets were regenerated this frame.
type SheetSource interface {
	SheetUpdated(role palette.Role, group int) bool
}

// Cell is one background tile reference.
type Cell struct {
	Tile      uint8 // last rendered tile index
	Attribute uint8 // last rendered attribute byte
	Group     uint8 // palette group derived from Attribute

	// Position of the tile inside its sheet
	SheetX, SheetY int

	seen bool
}

// Quadrant is one logical nametable's worth of cells placed in the virtual plane.
type Quadrant struct {
	Cells [snapshot.CellCount]Cell

	// Physical nametable backing the quadrant this frame, -1 when absent.
	Physical int

	// BaseX/BaseY locate the quadrant in the virtual plane; X/Y are its
	// screen position after the scroll translation.
	BaseX, BaseY int
	X, Y         int

	changed []int
}

// Engine owns the background grid and its previous-frame baselines.
type Engine struct {
	quadrants [snapshot.NametableCount]Quadrant

	scrollX, scrollY int
	bank             int
	visible          bool
	repaints         int
}

// NewEngine creates an engine with empty baselines; the first Update touches every cell.
func NewEngine() *Engine {
	e := &Engine{}
	for q := range e.quadrants {
		e.quadrants[q].Physical = -1
		e.quadrants[q].changed = make([]int, 0, snapshot.CellCount)
	}
	layoutQuadrants(&e.quadrants, 0, 0)
	return e
}

// Update diffs the snapshot's nametables against the previous frame and
// repositions the quadrants for the current scroll.
func (e *Engine) Update(s *snapshot.Snapshot, sheets SheetSource) {
	e.visible = s.Control.ShowBackground
	e.bank = s.Control.BackgroundBank()
	e.repaints = 0

	var regenerated [snapshot.GroupCount]bool
	for g := range regenerated {
		regenerated[g] = sheets.SheetUpdated(palette.Background, g)
	}

	for q := range e.quadrants {
		quad := &e.quadrants[q]
		quad.changed = quad.changed[:0]

		nt := s.Nametable(q)
		if nt == nil {
			quad.Physical = -1
			continue
		}
		quad.Physical = s.MirrorMap[q]
		diffQuadrant(quad, nt, &regenerated)
		e.repaints += len(quad.changed)
	}

	e.scrollX = s.Scroll.X(snapshot.ViewportWidth)
	e.scrollY = s.Scroll.Y(snapshot.ViewportHeight)
	layoutQuadrants(&e.quadrants, e.scrollX, e.scrollY)
}

func diffQuadrant(quad *Quadrant, nt *snapshot.Nametable, regenerated *[snapshot.GroupCount]bool) {
	for i := 0; i < snapshot.CellCount; i++ {
		cell := &quad.Cells[i]
		tile := nt.Tiles[i]
		attr := nt.Attributes[i]

		tileChanged := !cell.seen || tile != cell.Tile
		attrChanged := !cell.seen || attr != cell.Attribute

		group := cell.Group
		if attrChanged {
			group = snapshot.PaletteGroup(i, attr)
		}
		sheetChanged := regenerated[group]

		if !tileChanged && !attrChanged && !sheetChanged {
			continue
		}

		if tileChanged || sheetChanged {
			cell.Tile = tile
			cell.SheetX, cell.SheetY = tilecache.TilePosition(int(tile))
		}
		if attrChanged {
			cell.Attribute = attr
			cell.Group = group
		}
		cell.seen = true
		quad.changed = append(quad.changed, i)
	}
}

// Quadrant returns quadrant q. The result must be treated as read-only.
func (e *Engine) Quadrant(q int) *Quadrant {
	return &e.quadrants[q&3]
}

// Cell returns a copy of cell i of quadrant q.
func (e *Engine) Cell(q, i int) Cell {
	return e.quadrants[q&3].Cells[i]
}

// Changed returns the cells of quadrant q touched by the last Update.
// The slice is reused on the next Update.
func (e *Engine) Changed(q int) []int {
	return e.quadrants[q&3].changed
}

// Repaints returns the number of cells touched by the last Update.
func (e *Engine) Repaints() int {
	return e.repaints
}

// Scroll returns the absolute scroll position of the last Update.
func (e *Engine) Scroll() (x, y int) {
	return e.scrollX, e.scrollY
}

// Bank returns the background pattern bank of the last Update.
func (e *Engine) Bank() int {
	return e.bank
}

// Visible reports whether the background layer is enabled.
func (e *Engine) Visible() bool {
	return e.visible
}

// CellOrigin returns the screen position of cell i of quadrant q.
func (e *Engine) CellOrigin(q, i int) (x, y int) {
	quad := &e.quadrants[q&3]
	return quad.X + (i%snapshot.CellColumns)*8, quad.Y + (i/snapshot.CellColumns)*8
}
