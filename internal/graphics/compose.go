package graphics

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/sprite"
	"nesview/internal/tilecache"
)

// ComposeFrame rasterizes a scene into a 256x240 image in software.
//
// Layers are drawn back to front: backdrop, sprites behind the background,
// the four background quadrants at their scrolled positions, sprites in
// front. Sprites with lower OAM indices are drawn last so they win overlaps.
func ComposeFrame(dst *image.RGBA, scene *Scene) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(scene.Backdrop.RGBA8()), image.Point{}, draw.Src)

	if scene.Sprites.Visible() {
		composeSprites(dst, scene, sprite.Behind)
	}
	if scene.Background.Visible() {
		composeBackground(dst, scene)
	}
	if scene.Sprites.Visible() {
		composeSprites(dst, scene, sprite.InFront)
	}
}

func composeBackground(dst *image.RGBA, scene *Scene) {
	bg := scene.Background
	viewport := dst.Bounds()

	for q := 0; q < snapshot.NametableCount; q++ {
		quad := bg.Quadrant(q)
		if quad.Physical < 0 {
			continue
		}
		area := image.Rect(quad.X, quad.Y, quad.X+snapshot.ViewportWidth, quad.Y+snapshot.ViewportHeight)
		if !area.Overlaps(viewport) {
			continue
		}

		for i := range quad.Cells {
			cell := &quad.Cells[i]
			x, y := bg.CellOrigin(q, i)
			r := image.Rect(x, y, x+8, y+8)
			if !r.Overlaps(viewport) {
				continue
			}
			key := tilecache.SheetKey{Role: palette.Background, Bank: bg.Bank(), Group: int(cell.Group)}
			draw.Draw(dst, r, scene.Sheets.Image(key), tilecache.TileRect(int(cell.Tile)).Min, draw.Over)
		}
	}
}

func composeSprites(dst *image.RGBA, scene *Scene, depth sprite.Depth) {
	views := scene.Sprites.Views()
	for i := len(views) - 1; i >= 0; i-- {
		v := &views[i]
		if !v.Visible || v.Depth != depth {
			continue
		}
		sheet := scene.Sheets.Image(v.Sheet)
		blitTile(dst, sheet, v.Top, v.X, v.Y, v.FlipH, v.FlipV)
		if v.Tall {
			blitTile(dst, sheet, v.Bottom, v.X, v.Y+8, v.FlipH, v.FlipV)
		}
	}
}

// blitTile copies the opaque pixels of one 8x8 tile with optional flips
func blitTile(dst, sheet *image.RGBA, ref sprite.TileRef, x, y int, flipH, flipV bool) {
	for py := 0; py < 8; py++ {
		sy := py
		if flipV {
			sy = 7 - py
		}
		for px := 0; px < 8; px++ {
			sx := px
			if flipH {
				sx = 7 - px
			}
			c := sheet.RGBAAt(ref.SheetX+sx, ref.SheetY+sy)
			if c.A == 0 {
				continue
			}
			dst.SetRGBA(x+px, y+py, c)
		}
	}
}

// ContactSheet lays the twelve sheets out in a 4x3 grid, background row
// first, scaled by scale with nearest-neighbour sampling.
func ContactSheet(sheets [tilecache.SheetCount]*image.RGBA, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	const cols = 4
	rows := tilecache.SheetCount / cols
	out := image.NewRGBA(image.Rect(0, 0, cols*tilecache.SheetSize*scale, rows*tilecache.SheetSize*scale))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{A: 0xFF}), image.Point{}, draw.Src)

	size := tilecache.SheetSize * scale
	for slot, img := range sheets {
		if img == nil {
			continue
		}
		x := (slot % cols) * size
		y := (slot / cols) * size
		draw.NearestNeighbor.Scale(out, image.Rect(x, y, x+size, y+size), img, img.Bounds(), draw.Over, nil)
	}
	return out
}
