// Package snapshot defines the per-frame view of the picture processor's state
// and the extractor that materializes it from the emulation core.
package snapshot

// Chip geometry
const (
	PaletteSize     = 16   // entries per role (background, sprite)
	GroupSize       = 4    // colors per palette group
	GroupCount      = 4    // palette groups per role
	NametableCount  = 4    // logical (and maximum physical) nametables
	NametableSize   = 1024 // bytes per nametable including the attribute table
	CellColumns     = 32
	CellRows        = 30
	CellCount       = CellColumns * CellRows // 960 visible cells per nametable
	TileCount       = 512
	TilesPerBank    = 256
	TilePixels      = 64
	SpriteCount     = 64
	RegionCount     = 8  // 1KB pattern regions
	TilesPerRegion  = 64 // 1KB / 16 bytes per tile
	RegionsPerBank  = RegionCount / 2
	ViewportWidth   = 256
	ViewportHeight  = 240
	attributeOffset = CellCount
)

// Tile holds the 64 decoded pixel values of one 8x8 tile, row-major.
// Values are 0-3; 0 is transparent.
type Tile [TilePixels]uint8

// Nametable is one screenful of background layout.
//
// Tiles is the raw nametable: cells 0-959 hold tile indices and bytes
// 960-1023 are the attribute table. Attributes[i] is the attribute-table
// byte that governs cell i, kept in sync by the memory that owns the record.
type Nametable struct {
	Tiles      [NametableSize]uint8
	Attributes [NametableSize]uint8
}

// AttributeIndex returns the attribute-table slot (0-63) that covers cell.
func AttributeIndex(cell int) int {
	col, row := cell%CellColumns, cell/CellColumns
	return (row>>2)*8 + (col >> 2)
}

// PaletteGroup extracts the 2-bit palette group of cell from its attribute byte.
// Each byte covers a 4x4 cell block split into four 2x2 quadrants.
func PaletteGroup(cell int, attribute uint8) uint8 {
	col, row := cell%CellColumns, cell/CellColumns
	shift := ((row>>1)&1)<<2 | ((col>>1)&1)<<1
	return (attribute >> shift) & 0x03
}

// Sprite is one decoded object attribute memory entry.
type Sprite struct {
	X, Y             uint8
	Tile             uint8
	Palette          uint8 // palette group 0-3
	FlipH, FlipV     bool
	BehindBackground bool
}

// Scroll holds the scroll latch fields.
type Scroll struct {
	CoarseX, FineX uint8
	CoarseY, FineY uint8
	NametableH     uint8 // horizontal nametable select bit
	NametableV     uint8 // vertical nametable select bit
}

// X returns the absolute horizontal scroll in pixels for a viewport of the given width.
func (s Scroll) X(viewportWidth int) int {
	return int(s.CoarseX)*8 + int(s.FineX) + int(s.NametableH)*viewportWidth
}

// Y returns the absolute vertical scroll in pixels for a viewport of the given height.
func (s Scroll) Y(viewportHeight int) int {
	return int(s.CoarseY)*8 + int(s.FineY) + int(s.NametableV)*viewportHeight
}

// Control holds the rendering control flags.
type Control struct {
	BackgroundTableHigh bool // background tiles come from pattern table 1
	SpriteTableHigh     bool // 8x8 sprite tiles come from pattern table 1
	TallSprites         bool // 8x16 sprite mode
	ShowBackground      bool
	ShowSprites         bool
}

// BackgroundBank resolves the background pattern-table base to a bank index.
func (c Control) BackgroundBank() int {
	if c.BackgroundTableHigh {
		return 1
	}
	return 0
}

// SpriteBank resolves the 8x8 sprite pattern-table base to a bank index.
func (c Control) SpriteBank() int {
	if c.SpriteTableHigh {
		return 1
	}
	return 0
}

// SpriteHeight returns 8 or 16.
func (c Control) SpriteHeight() int {
	if c.TallSprites {
		return 16
	}
	return 8
}

// BankSignature carries one generation counter per 1KB pattern region.
// A counter changes whenever the region's backing storage is reassigned.
type BankSignature [RegionCount]uint32

// MirrorMap maps logical quadrants to physical nametable indices.
type MirrorMap [NametableCount]int

// Snapshot is the state of the picture processor at the end of one frame.
//
// Palettes, sprites, scroll and control are copies. Nametables and Tiles are
// borrowed from the emulation core and are only valid until the next frame
// step; consumers must not retain them. A nil nametable or tile is absent.
type Snapshot struct {
	BackgroundPalette [PaletteSize]uint32 // packed 0xRRGGBB
	SpritePalette     [PaletteSize]uint32

	Nametables [NametableCount]*Nametable
	MirrorMap  MirrorMap

	Tiles         [TileCount]*Tile
	BankSignature BankSignature

	Sprites [SpriteCount]Sprite
	Scroll  Scroll
	Control Control

	Frame uint64
}

// Nametable returns the physical nametable mapped to a logical quadrant, or nil.
func (s *Snapshot) Nametable(quadrant int) *Nametable {
	physical := s.MirrorMap[quadrant&3]
	if physical < 0 || physical >= NametableCount {
		return nil
	}
	return s.Nametables[physical]
}
