package snapshot

import "nesview/internal/palette"

// Source is the chip state exposed by the emulation core.
type Source interface {
	// PaletteRAM returns the 32 palette entries as 6-bit color indices,
	// with the sprite backdrop mirrors already resolved.
	PaletteRAM() [32]uint8
	// Nametable returns the physical nametable record, or nil if the
	// mirroring configuration does not back it.
	Nametable(physical int) *Nametable
	MirrorMap() MirrorMap
	// PatternTiles fills dst with references to the currently mapped tiles.
	PatternTiles(dst *[TileCount]*Tile)
	BankSignature() BankSignature
	OAM() *[256]uint8
	// ScrollLatch returns the temporary VRAM address and fine X scroll.
	ScrollLatch() (t uint16, fineX uint8)
	ControlRegisters() (ctrl, mask uint8)
	FrameCount() uint64
}

// ColorFilter post-processes a packed 0xRRGGBB color.
type ColorFilter func(rgb uint32) uint32

// Extractor materializes a Snapshot from a Source once per frame.
type Extractor struct {
	source Source
	filter ColorFilter
}

// NewExtractor creates an extractor reading from source.
func NewExtractor(source Source) *Extractor {
	return &Extractor{source: source}
}

// SetColorFilter installs a filter applied to every palette color.
func (e *Extractor) SetColorFilter(filter ColorFilter) {
	e.filter = filter
}

// Extract reads the source state. It never writes to the source.
func (e *Extractor) Extract() *Snapshot {
	s := &Snapshot{}
	src := e.source

	ctrl, mask := src.ControlRegisters()
	grayscale := mask&0x01 != 0

	ram := src.PaletteRAM()
	for i := 0; i < PaletteSize; i++ {
		s.BackgroundPalette[i] = e.color(ram[i], grayscale)
		s.SpritePalette[i] = e.color(ram[PaletteSize+i], grayscale)
	}

	s.MirrorMap = src.MirrorMap()
	for i := range s.Nametables {
		s.Nametables[i] = src.Nametable(i)
	}

	src.PatternTiles(&s.Tiles)
	s.BankSignature = src.BankSignature()

	oam := src.OAM()
	for i := range s.Sprites {
		s.Sprites[i] = DecodeSprite(oam[i*4 : i*4+4])
	}

	t, fineX := src.ScrollLatch()
	s.Scroll = Scroll{
		CoarseX:    uint8(t & 0x1F),
		CoarseY:    uint8((t >> 5) & 0x1F),
		NametableH: uint8((t >> 10) & 0x01),
		NametableV: uint8((t >> 11) & 0x01),
		FineY:      uint8((t >> 12) & 0x07),
		FineX:      fineX & 0x07,
	}

	s.Control = Control{
		SpriteTableHigh:     ctrl&0x08 != 0,
		BackgroundTableHigh: ctrl&0x10 != 0,
		TallSprites:         ctrl&0x20 != 0,
		ShowBackground:      mask&0x08 != 0,
		ShowSprites:         mask&0x10 != 0,
	}

	s.Frame = src.FrameCount()
	return s
}

func (e *Extractor) color(index uint8, grayscale bool) uint32 {
	if grayscale {
		index &= 0x30
	}
	rgb := palette.NESColor(index)
	if e.filter != nil {
		rgb = e.filter(rgb) & 0xFFFFFF
	}
	return rgb
}

// DecodeSprite decodes a 4-byte OAM entry.
//
//	byte 0: Y (scanline before the first visible row)
//	byte 1: tile index
//	byte 2: 76543210
//	        ||||||++- palette group
//	        ||+------ priority (1: behind background)
//	        |+------- flip horizontally
//	        +-------- flip vertically
//	byte 3: X
func DecodeSprite(entry []uint8) Sprite {
	attr := entry[2]
	return Sprite{
		Y:                entry[0],
		Tile:             entry[1],
		Palette:          attr & 0x03,
		BehindBackground: attr&0x20 != 0,
		FlipH:            attr&0x40 != 0,
		FlipV:            attr&0x80 != 0,
		X:                entry[3],
	}
}
