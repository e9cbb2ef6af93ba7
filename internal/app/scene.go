package app

import (
	"nesview/internal/cartridge"
	"nesview/internal/ppu"
	"nesview/internal/snapshot"
)

const (
	demoCHRBanks = 4
	demoSprites  = 12
	hiddenY      = 0xEF

	ctrlSpriteTable = 0x08
	ctrlBackground  = 0x10
	ctrlTallSprites = 0x20
	ctrlNMI         = 0x80
	maskGrayscale   = 0x01
	maskDefault     = 0x1E

	counterCell = 28*snapshot.CellColumns + 1
)

// PalettePreset is a full palette RAM image
type PalettePreset struct {
	Name    string
	Entries [32]uint8
}

var palettePresets = []PalettePreset{
	{
		Name: "classic",
		Entries: [32]uint8{
			0x0F, 0x16, 0x27, 0x18, 0x0F, 0x1A, 0x2A, 0x39, 0x0F, 0x12, 0x22, 0x32, 0x0F, 0x14, 0x24, 0x34,
			0x0F, 0x16, 0x27, 0x30, 0x0F, 0x02, 0x12, 0x21, 0x0F, 0x19, 0x29, 0x39, 0x0F, 0x06, 0x16, 0x26,
		},
	},
	{
		Name: "dusk",
		Entries: [32]uint8{
			0x0C, 0x04, 0x14, 0x24, 0x0C, 0x07, 0x17, 0x27, 0x0C, 0x03, 0x13, 0x23, 0x0C, 0x08, 0x18, 0x28,
			0x0C, 0x15, 0x26, 0x36, 0x0C, 0x11, 0x21, 0x31, 0x0C, 0x1B, 0x2B, 0x3B, 0x0C, 0x05, 0x25, 0x35,
		},
	},
	{
		Name: "mono",
		Entries: [32]uint8{
			0x0F, 0x00, 0x10, 0x30, 0x0F, 0x00, 0x10, 0x30, 0x0F, 0x00, 0x10, 0x30, 0x0F, 0x00, 0x10, 0x30,
			0x0F, 0x00, 0x10, 0x30, 0x0F, 0x00, 0x10, 0x30, 0x0F, 0x00, 0x10, 0x30, 0x0F, 0x00, 0x10, 0x30,
		},
	},
}

// PalettePresets returns the names of the built-in palettes
func PalettePresets() []string {
	names := make([]string, len(palettePresets))
	for i, p := range palettePresets {
		names[i] = p.Name
	}
	return names
}

// BuildDemoCartridge synthesizes a CNROM cartridge with four CHR banks of
// generated tiles. Background tiles vary by index; sprite tiles are discs.
func BuildDemoCartridge() (*cartridge.Cartridge, error) {
	builder := cartridge.NewROMBuilder().
		WithMapper(3).
		WithCHRSize(demoCHRBanks).
		WithMirroring(cartridge.MirrorVertical)

	for bank := 0; bank < demoCHRBanks; bank++ {
		for index := 1; index < snapshot.TileCount; index++ {
			tile := demoTile(bank, index)
			builder.WithTile(bank, index, &tile)
		}
	}
	return builder.BuildCartridge()
}

func demoTile(bank, index int) snapshot.Tile {
	var tile snapshot.Tile
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			var v int
			if index < snapshot.TilesPerBank {
				v = backgroundPixel(bank, index, x, y)
			} else {
				v = spritePixel(bank, index, x, y)
			}
			tile[y*8+x] = uint8(v)
		}
	}
	return tile
}

func backgroundPixel(bank, index, x, y int) int {
	seed := index/4 + bank
	switch index % 4 {
	case 0:
		return 1 + ((x>>1^y>>1)+seed)%3
	case 1:
		return 1 + (y+seed)%3
	case 2:
		return 1 + ((x+y)/2+seed)%3
	default:
		if x == 0 || y == 0 || x == 7 || y == 7 {
			return 3
		}
		return seed % 3
	}
}

func spritePixel(bank, index, x, y int) int {
	dx, dy := x*2-7, y*2-7
	d := dx*dx + dy*dy
	var v int
	switch {
	case d > 64:
		return 0
	case d > 36:
		v = 1
	case d > 12:
		v = 2
	default:
		v = 3
	}
	if index%2 == 1 && v == 3 {
		return 0 // ring
	}
	return 1 + (v-1+bank+index/2)%3
}

// vram writes through the CPU-visible registers of a PPU. Every address
// write goes through the shared scroll latch, so callers restore scroll
// afterwards.
type vram struct {
	ppu *ppu.PPU
}

func (v vram) setAddress(address uint16) {
	v.ppu.ReadRegister(0x2002)
	v.ppu.WriteRegister(0x2006, uint8(address>>8))
	v.ppu.WriteRegister(0x2006, uint8(address))
}

func (v vram) write(address uint16, data ...uint8) {
	v.setAddress(address)
	for _, b := range data {
		v.ppu.WriteRegister(0x2007, b)
	}
}

// dma copies a full sprite page into OAM
func (v vram) dma(page *[256]uint8) {
	for i, b := range page {
		v.ppu.WriteOAM(uint8(i), b)
	}
}

func (v vram) control() (ctrl, mask uint8) {
	return v.ppu.ControlRegisters()
}

func (v vram) setControl(ctrl uint8) {
	v.ppu.WriteRegister(0x2000, ctrl)
}

func (v vram) setMask(mask uint8) {
	v.ppu.WriteRegister(0x2001, mask)
}

// setScroll loads an absolute scroll position (0-511, 0-479) into the latch
func (v vram) setScroll(x, y int) {
	ctrl, _ := v.control()
	ctrl = ctrl&^0x03 | uint8(x/snapshot.ViewportWidth)&1 | (uint8(y/snapshot.ViewportHeight)&1)<<1
	v.setControl(ctrl)

	v.ppu.ReadRegister(0x2002)
	v.ppu.WriteRegister(0x2005, uint8(x%snapshot.ViewportWidth))
	v.ppu.WriteRegister(0x2005, uint8(y%snapshot.ViewportHeight))
}

func (v vram) loadPalette(preset PalettePreset) {
	v.write(0x3F00, preset.Entries[:]...)
}

type demoSprite struct {
	x, y   int
	dx, dy int
	tile   uint8
	attr   uint8
}

// DemoScene programs nametables, attributes and sprites into the PPU and
// animates them from its VBlank handler.
type DemoScene struct {
	vram    vram
	oam     [256]uint8 // shadow page copied by DMA
	sprites [demoSprites]demoSprite
	animate bool
	frames  uint64
}

// NewDemoScene creates a scene writing to p
func NewDemoScene(p *ppu.PPU, animate bool) *DemoScene {
	d := &DemoScene{vram: vram{ppu: p}, animate: animate}
	for i := range d.sprites {
		s := &d.sprites[i]
		s.x = 16 + i*19
		s.y = 24 + (i*37)%160
		s.dx = 1 - 2*(i%2)
		s.dy = 1 - 2*((i/2)%2)
		s.tile = uint8(i * 2)
		s.attr = uint8(i % 4)
		if i%3 == 0 {
			s.attr |= 0x40
		}
		if i%5 == 0 {
			s.attr |= 0x80
		}
		if i == 7 {
			s.attr |= 0x20 // behind the background
		}
	}
	return d
}

// Setup writes the static layout: a block pattern in nametable 0 and a
// framed 16x16 view of the current pattern table in nametable 1.
func (d *DemoScene) Setup() {
	var nt [snapshot.NametableSize]uint8
	for i := 0; i < snapshot.CellCount; i++ {
		col, row := i%snapshot.CellColumns, i/snapshot.CellColumns
		nt[i] = uint8(1 + (col/2+row/2*16)%255)
	}
	for i := snapshot.CellCount; i < snapshot.NametableSize; i++ {
		nt[i] = uint8((i - snapshot.CellCount) * 0x1B)
	}
	d.vram.write(0x2000, nt[:]...)

	for i := 0; i < snapshot.CellCount; i++ {
		col, row := i%snapshot.CellColumns, i/snapshot.CellColumns
		switch {
		case col >= 8 && col < 24 && row >= 7 && row < 23:
			nt[i] = uint8((row-7)*16 + col - 8)
		case col == 7 || col == 24 || row == 6 || row == 23:
			nt[i] = 3
		default:
			nt[i] = 0
		}
	}
	for i := snapshot.CellCount; i < snapshot.NametableSize; i++ {
		nt[i] = [4]uint8{0x00, 0x55, 0xAA, 0xFF}[(i-snapshot.CellCount)/16]
	}
	d.vram.write(0x2400, nt[:]...)

	for i := range d.oam {
		d.oam[i] = hiddenY
	}
	d.writeSprites()

	d.vram.setControl(ctrlNMI | ctrlSpriteTable)
	d.vram.setMask(maskDefault)
}

// Animate moves the scene forward one frame. It runs during VBlank and
// reports whether VRAM was written, which disturbs the scroll latch.
func (d *DemoScene) Animate() bool {
	d.frames++
	if !d.animate {
		return false
	}

	for i := range d.sprites {
		s := &d.sprites[i]
		s.x += s.dx
		s.y += s.dy
		if s.x <= 0 || s.x >= snapshot.ViewportWidth-8 {
			s.dx = -s.dx
		}
		if s.y <= 8 || s.y >= snapshot.ViewportHeight-24 {
			s.dy = -s.dy
		}
	}
	d.writeSprites()

	if d.frames%30 != 0 {
		return false
	}
	d.vram.write(0x2000+counterCell, uint8(1+(d.frames/30)%16))
	return true
}

func (d *DemoScene) writeSprites() {
	for i, s := range d.sprites {
		d.oam[i*4] = uint8(s.y)
		d.oam[i*4+1] = s.tile
		d.oam[i*4+2] = s.attr
		d.oam[i*4+3] = uint8(s.x)
	}
	d.vram.dma(&d.oam)
}

// Frames returns the number of animated frames
func (d *DemoScene) Frames() uint64 {
	return d.frames
}
