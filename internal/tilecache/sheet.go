package tilecache

import (
	"fmt"
	"image"
	"image/color"

	"nesview/internal/palette"
	"nesview/internal/snapshot"
)

// Sheet geometry: 16x16 tiles of 8x8 pixels.
const (
	SheetTilesPerRow = 16
	SheetSize        = SheetTilesPerRow * 8
	SheetCount       = 12

	backgroundSheets = snapshot.GroupCount
	bankCount        = 2
)

// SheetKey identifies one of the twelve sheets.
// Background sheets always sample the current background bank.
type SheetKey struct {
	Role  palette.Role
	Bank  int
	Group int
}

func (k SheetKey) String() string {
	return fmt.Sprintf("%s/bank%d/group%d", k.Role, k.Bank, k.Group)
}

// Slot maps a key to its fixed position in the sheet table:
// 0-3 background groups, 4-11 sprite bank*4+group.
func (k SheetKey) Slot() int {
	if k.Role == palette.Background {
		return k.Group & 3
	}
	return backgroundSheets + (k.Bank&1)*snapshot.GroupCount + k.Group&3
}

// KeyForSlot returns the key stored at slot, resolving background sheets to bgBank.
func KeyForSlot(slot, bgBank int) SheetKey {
	if slot < backgroundSheets {
		return SheetKey{Role: palette.Background, Bank: bgBank, Group: slot}
	}
	slot -= backgroundSheets
	return SheetKey{Role: palette.Sprite, Bank: slot / snapshot.GroupCount, Group: slot % snapshot.GroupCount}
}

// TilePosition returns the pixel offset of a tile (0-255) within its sheet.
func TilePosition(index int) (x, y int) {
	index &= snapshot.TilesPerBank - 1
	return (index % SheetTilesPerRow) * 8, (index / SheetTilesPerRow) * 8
}

// TileRect returns the sheet rectangle holding a tile.
func TileRect(index int) image.Rectangle {
	x, y := TilePosition(index)
	return image.Rect(x, y, x+8, y+8)
}

var transparent = color.RGBA{}

// renderSheet rasterizes the 256 tiles of bank into img using colors.
// Pixel value 0 is transparent; 1-3 index colors. Absent tiles are transparent.
func renderSheet(img *image.RGBA, tiles *[snapshot.TileCount]*snapshot.Tile, bank int, colors [snapshot.GroupSize]palette.Color) {
	var rgba [snapshot.GroupSize]color.RGBA
	rgba[0] = transparent
	for i := 1; i < len(colors); i++ {
		rgba[i] = colors[i].RGBA8()
	}

	base := (bank & 1) * snapshot.TilesPerBank
	for index := 0; index < snapshot.TilesPerBank; index++ {
		ox, oy := TilePosition(index)
		tile := tiles[base+index]
		for py := 0; py < 8; py++ {
			row := img.Pix[(oy+py)*img.Stride+ox*4:]
			for px := 0; px < 8; px++ {
				c := transparent
				if tile != nil {
					c = rgba[tile[py*8+px]&0x03]
				}
				o := px * 4
				row[o] = c.R
				row[o+1] = c.G
				row[o+2] = c.B
				row[o+3] = c.A
			}
		}
	}
}
