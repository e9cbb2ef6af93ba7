package background

import "nesview/internal/snapshot"

// The virtual plane is two viewports wide and two tall, one quadrant each.
const (
	PlaneWidth  = 2 * snapshot.ViewportWidth
	PlaneHeight = 2 * snapshot.ViewportHeight
)

// quadrantOrigin returns the home position of quadrant q in the virtual plane.
func quadrantOrigin(q int) (x, y int) {
	return (q & 1) * snapshot.ViewportWidth, (q >> 1) * snapshot.ViewportHeight
}

// wrapBase advances base by one plane dimension when the quadrant's
// trailing edge is at or behind the scroll origin.
func wrapBase(base, size, plane, scroll int) int {
	if base+size <= scroll {
		return base + plane
	}
	return base
}

// layoutQuadrants positions the four quadrants for an absolute scroll so the
// viewport at (scrollX, scrollY) is always fully covered.
func layoutQuadrants(quadrants *[snapshot.NametableCount]Quadrant, scrollX, scrollY int) {
	for q := range quadrants {
		ox, oy := quadrantOrigin(q)
		quad := &quadrants[q]
		quad.BaseX = wrapBase(ox, snapshot.ViewportWidth, PlaneWidth, scrollX)
		quad.BaseY = wrapBase(oy, snapshot.ViewportHeight, PlaneHeight, scrollY)
		quad.X = quad.BaseX - scrollX
		quad.Y = quad.BaseY - scrollY
	}
}
