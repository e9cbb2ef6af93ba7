package background

import (
	"testing"

	"nesview/internal/snapshot"
)

// TestScrollPixels tests absolute scroll computation
func TestScrollPixels(t *testing.T) {
	e := NewEngine()
	s := newTestSnapshot()
	s.Scroll = snapshot.Scroll{CoarseX: 10, FineX: 3, NametableH: 1, CoarseY: 2, FineY: 5}
	e.Update(s, fakeSheets{})

	x, y := e.Scroll()
	if x != 339 {
		t.Errorf("Expected scroll X 339, got %d", x)
	}
	if y != 21 {
		t.Errorf("Expected scroll Y 21, got %d", y)
	}
}

// TestQuadrantLayoutAt339 tests that the left quadrants wrap behind the right ones
func TestQuadrantLayoutAt339(t *testing.T) {
	var quads [4]Quadrant
	layoutQuadrants(&quads, 339, 0)

	tests := []struct {
		q            int
		baseX, baseY int
		x, y         int
	}{
		{0, 512, 0, 173, 0},
		{1, 256, 0, -83, 0},
		{2, 512, 240, 173, 240},
		{3, 256, 240, -83, 240},
	}
	for _, tt := range tests {
		quad := quads[tt.q]
		if quad.BaseX != tt.baseX || quad.BaseY != tt.baseY || quad.X != tt.x || quad.Y != tt.y {
			t.Errorf("Quadrant %d: base (%d,%d) pos (%d,%d), want base (%d,%d) pos (%d,%d)",
				tt.q, quad.BaseX, quad.BaseY, quad.X, quad.Y, tt.baseX, tt.baseY, tt.x, tt.y)
		}
	}
}

// TestQuadrantsAlwaysCoverViewport tests wrap-around over every scroll position
func TestQuadrantsAlwaysCoverViewport(t *testing.T) {
	covered := func(quads *[4]Quadrant, px, py int) bool {
		for _, quad := range quads {
			if px >= quad.X && px < quad.X+snapshot.ViewportWidth &&
				py >= quad.Y && py < quad.Y+snapshot.ViewportHeight {
				return true
			}
		}
		return false
	}

	var quads [4]Quadrant
	for sx := 0; sx < PlaneWidth; sx += 7 {
		for sy := 0; sy < 2*snapshot.ViewportHeight+16; sy += 13 {
			layoutQuadrants(&quads, sx, sy)
			for _, p := range [][2]int{{0, 0}, {255, 0}, {0, 239}, {255, 239}, {128, 120}} {
				if !covered(&quads, p[0], p[1]) {
					t.Fatalf("Scroll (%d,%d): viewport pixel (%d,%d) not covered", sx, sy, p[0], p[1])
				}
			}
		}
	}
}

func TestCellOrigin(t *testing.T) {
	e := NewEngine()
	s := newTestSnapshot()
	s.Scroll = snapshot.Scroll{CoarseX: 1}
	e.Update(s, fakeSheets{})

	x, y := e.CellOrigin(0, 33)
	if x != 0 || y != 8 {
		t.Errorf("Expected cell 33 of quadrant 0 at (0,8), got (%d,%d)", x, y)
	}
}
