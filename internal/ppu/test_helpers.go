package ppu

import (
	"nesview/internal/memory"
	"nesview/internal/snapshot"
)

// MockCartridge is flat 8KB pattern memory with a fixed signature
type MockCartridge struct {
	chrData   [0x2000]uint8
	tiles     [snapshot.TileCount]snapshot.Tile
	signature snapshot.BankSignature
}

// ReadCHR reads from CHR memory
func (m *MockCartridge) ReadCHR(address uint16) uint8 {
	return m.chrData[address&0x1FFF]
}

// WriteCHR writes to CHR memory
func (m *MockCartridge) WriteCHR(address uint16, value uint8) {
	m.chrData[address&0x1FFF] = value
}

// PatternTiles references the mock's tiles
func (m *MockCartridge) PatternTiles(dst *[snapshot.TileCount]*snapshot.Tile) {
	for i := range dst {
		dst[i] = &m.tiles[i]
	}
}

// BankSignature returns the mock signature
func (m *MockCartridge) BankSignature() snapshot.BankSignature {
	return m.signature
}

// newTestPPU wires a PPU to fresh memory and a mock cartridge
func newTestPPU(mode memory.MirrorMode) (*PPU, *memory.PPUMemory, *MockCartridge) {
	cart := &MockCartridge{}
	mem := memory.NewPPUMemory(cart, mode)
	p := New()
	p.SetMemory(mem)
	p.SetPatternSource(cart)
	return p, mem, cart
}

// writeAddr points v at address through PPUADDR
func writeAddr(p *PPU, address uint16) {
	p.WriteRegister(0x2006, uint8(address>>8))
	p.WriteRegister(0x2006, uint8(address))
}
