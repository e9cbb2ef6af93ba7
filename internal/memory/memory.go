// Package memory implements the PPU address space.
//
// Nametables are stored as snapshot.Nametable records so the chip state can
// be handed to the snapshot extractor without copying. Each record keeps a
// per-cell view of the attribute table that is updated on every attribute
// write.
package memory

import (
	"nesview/internal/snapshot"
)

const attributeOffset = snapshot.CellCount

// PPUMemory represents the PPU's memory space ($0000-$3FFF)
type PPUMemory struct {
	nametables [snapshot.NametableCount]snapshot.Nametable
	paletteRAM [32]uint8
	cartridge  CartridgeInterface
	mirroring  MirrorMode
}

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

// CartridgeInterface defines the interface for pattern memory access
type CartridgeInterface interface {
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// mirrorMaps maps each quadrant ($2000, $2400, $2800, $2C00) to a physical nametable
var mirrorMaps = [...]snapshot.MirrorMap{
	MirrorHorizontal:    {0, 0, 1, 1},
	MirrorVertical:      {0, 1, 0, 1},
	MirrorSingleScreen0: {0, 0, 0, 0},
	MirrorSingleScreen1: {1, 1, 1, 1},
	MirrorFourScreen:    {0, 1, 2, 3},
}

// NewPPUMemory creates a new PPU memory instance
func NewPPUMemory(cart CartridgeInterface, mirroring MirrorMode) *PPUMemory {
	mem := &PPUMemory{
		cartridge: cart,
	}
	mem.SetMirroring(mirroring)

	// Backdrop entries start out black
	for i := 0; i < 32; i += 4 {
		mem.paletteRAM[i] = 0x0F
	}

	return mem
}

// SetMirroring changes the nametable arrangement. Unknown modes fall back to horizontal.
func (pm *PPUMemory) SetMirroring(mode MirrorMode) {
	if int(mode) >= len(mirrorMaps) {
		mode = MirrorHorizontal
	}
	pm.mirroring = mode
}

// Mirroring returns the current mirroring mode
func (pm *PPUMemory) Mirroring() MirrorMode {
	return pm.mirroring
}

// MirrorMap returns the quadrant to physical nametable mapping
func (pm *PPUMemory) MirrorMap() snapshot.MirrorMap {
	return mirrorMaps[pm.mirroring]
}

// physicalCount returns how many nametables the current mode backs
func (pm *PPUMemory) physicalCount() int {
	if pm.mirroring == MirrorFourScreen {
		return 4
	}
	return 2
}

// Nametable returns the physical nametable record, or nil if it is not backed
func (pm *PPUMemory) Nametable(physical int) *snapshot.Nametable {
	if physical < 0 || physical >= pm.physicalCount() {
		return nil
	}
	return &pm.nametables[physical]
}

// PaletteRAM returns the 32 palette entries with the sprite backdrop mirrors resolved
func (pm *PPUMemory) PaletteRAM() [32]uint8 {
	ram := pm.paletteRAM
	for i := 0x10; i < 0x20; i += 4 {
		ram[i] = pm.paletteRAM[i&0x0F]
	}
	return ram
}

// Read reads from PPU memory space ($0000-$3FFF)
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF // Mask to 14-bit address space

	switch {
	case address < 0x2000:
		// Pattern Tables ($0000-$1FFF) - CHR ROM/RAM
		return pm.cartridge.ReadCHR(address)

	case address < 0x3F00:
		// Nametables ($2000-$2FFF) and mirrors ($3000-$3EFF)
		nt, offset := pm.resolveNametable(address)
		return nt.Tiles[offset]

	default:
		// Palette RAM ($3F00-$3F1F) and mirrors ($3F20-$3FFF)
		return pm.paletteRAM[paletteIndex(address)]
	}
}

// Write writes to PPU memory space ($0000-$3FFF)
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF // Mask to 14-bit address space

	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)

	case address < 0x3F00:
		nt, offset := pm.resolveNametable(address)
		writeNametable(nt, offset, value)

	default:
		pm.paletteRAM[paletteIndex(address)] = value & 0x3F
	}
}

// resolveNametable maps a $2000-$3EFF address to its physical record and offset
func (pm *PPUMemory) resolveNametable(address uint16) (*snapshot.Nametable, int) {
	address &= 0x0FFF
	quadrant := int(address>>10) & 3
	physical := mirrorMaps[pm.mirroring][quadrant]
	return &pm.nametables[physical], int(address & 0x03FF)
}

// writeNametable stores a byte and keeps the per-cell attribute view in sync
func writeNametable(nt *snapshot.Nametable, offset int, value uint8) {
	nt.Tiles[offset] = value
	if offset < attributeOffset {
		return
	}

	// Each attribute byte covers a 4x4 block of cells
	a := offset - attributeOffset
	row0 := (a / 8) * 4
	col0 := (a % 8) * 4
	for row := row0; row < row0+4 && row < snapshot.CellRows; row++ {
		for col := col0; col < col0+4; col++ {
			nt.Attributes[row*snapshot.CellColumns+col] = value
		}
	}
}

// paletteIndex folds palette addresses, including the sprite backdrop
// mirrors at $3F10/$3F14/$3F18/$3F1C
func paletteIndex(address uint16) uint16 {
	index := (address - 0x3F00) & 0x1F
	if index&0x13 == 0x10 {
		index &= 0x0F
	}
	return index
}
