package ppu

import "nesview/internal/snapshot"

var _ snapshot.Source = (*PPU)(nil)

// PaletteRAM returns palette RAM with the sprite backdrop mirrors resolved
func (p *PPU) PaletteRAM() [32]uint8 {
	if p.memory == nil {
		return [32]uint8{}
	}
	return p.memory.PaletteRAM()
}

// Nametable returns a physical nametable record, or nil if unbacked
func (p *PPU) Nametable(physical int) *snapshot.Nametable {
	if p.memory == nil {
		return nil
	}
	return p.memory.Nametable(physical)
}

// MirrorMap returns the quadrant to nametable mapping
func (p *PPU) MirrorMap() snapshot.MirrorMap {
	if p.memory == nil {
		return snapshot.MirrorMap{0, 0, 1, 1}
	}
	return p.memory.MirrorMap()
}

// PatternTiles fills dst with the mapped tiles. Without a pattern source
// every entry is nil.
func (p *PPU) PatternTiles(dst *[snapshot.TileCount]*snapshot.Tile) {
	if p.patterns == nil {
		*dst = [snapshot.TileCount]*snapshot.Tile{}
		return
	}
	p.patterns.PatternTiles(dst)
}

// BankSignature returns the CHR region generations
func (p *PPU) BankSignature() snapshot.BankSignature {
	if p.patterns == nil {
		return snapshot.BankSignature{}
	}
	return p.patterns.BankSignature()
}

// OAM returns object attribute memory. The array must not be modified.
func (p *PPU) OAM() *[256]uint8 {
	return &p.oam
}

// ScrollLatch returns the temporary VRAM address and fine X scroll
func (p *PPU) ScrollLatch() (uint16, uint8) {
	return p.t, p.x
}

// ControlRegisters returns PPUCTRL and PPUMASK
func (p *PPU) ControlRegisters() (uint8, uint8) {
	return p.ppuCtrl, p.ppuMask
}

// FrameCount returns the number of completed frames
func (p *PPU) FrameCount() uint64 {
	return p.frameCount
}
