// Package ppu implements the register-level state of the NES Picture Processing Unit.
//
// The PPU here does not produce pixels. It keeps the CPU-visible registers,
// object attribute memory, the scroll latch and frame timing, and exposes that
// state to the snapshot extractor once per frame.
package ppu

import (
	"nesview/internal/memory"
	"nesview/internal/snapshot"
)

const (
	cyclesPerScanline = 341
	lastScanline      = 260
	vblankScanline    = 241
)

// PatternSource provides the pattern tiles currently mapped by the cartridge
type PatternSource interface {
	PatternTiles(dst *[snapshot.TileCount]*snapshot.Tile)
	BankSignature() snapshot.BankSignature
}

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	// PPU Registers (CPU-visible)
	ppuCtrl   uint8 // $2000 - PPUCTRL
	ppuMask   uint8 // $2001 - PPUMASK
	ppuStatus uint8 // $2002 - PPUSTATUS
	oamAddr   uint8 // $2003 - OAMADDR

	// Internal PPU State
	v uint16 // Current VRAM address (15 bits)
	t uint16 // Temporary VRAM address (15 bits) - address latch
	x uint8  // Fine X scroll (3 bits)
	w bool   // Write latch (toggles between first/second write)

	memory   *memory.PPUMemory
	patterns PatternSource

	// Timing
	scanline   int // Current scanline (-1 to 260)
	cycle      int // Current cycle (0 to 340)
	frameCount uint64
	readBuffer uint8 // PPU read buffer for $2007

	oam [256]uint8 // Object Attribute Memory

	// Callbacks
	nmiCallback           func()
	frameCompleteCallback func()

	renderingEnabled bool
}

// New creates a new PPU instance
func New() *PPU {
	return &PPU{
		scanline: -1, // Start at pre-render scanline
	}
}

// Reset resets the PPU to initial state
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0xA0 // VBL flag set, sprite overflow and sprite 0 hit clear
	p.oamAddr = 0

	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false

	p.scanline = -1
	p.cycle = 0
	p.frameCount = 0
	p.readBuffer = 0
	p.renderingEnabled = false

	p.oam = [256]uint8{}
}

// SetMemory sets the PPU memory interface
func (p *PPU) SetMemory(memory *memory.PPUMemory) {
	p.memory = memory
}

// SetPatternSource sets where pattern tiles are read from
func (p *PPU) SetPatternSource(patterns PatternSource) {
	p.patterns = patterns
}

// SetNMICallback sets the function run when the PPU raises NMI. It stands
// in for the CPU's NMI handler and may write registers.
func (p *PPU) SetNMICallback(callback func()) {
	p.nmiCallback = callback
}

// SetFrameCompleteCallback sets the function run after the pre-render
// line wraps to a new frame
func (p *PPU) SetFrameCompleteCallback(callback func()) {
	p.frameCompleteCallback = callback
}

// ReadRegister reads from a PPU register (CPU $2000-$2007, mirrored to $3FFF)
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch 0x2000 | address&0x0007 {
	case 0x2002: // PPUSTATUS
		status := p.ppuStatus
		p.ppuStatus &= 0x7F // Clear VBL flag
		p.w = false         // Clear write latch
		return status
	case 0x2004: // OAMDATA
		return p.oam[p.oamAddr]
	case 0x2007: // PPUDATA
		return p.readPPUData()
	default:
		return p.ppuStatus & 0x1F // Write-only registers return open bus
	}
}

// WriteRegister writes to a PPU register (CPU $2000-$2007, mirrored to $3FFF)
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch 0x2000 | address&0x0007 {
	case 0x2000: // PPUCTRL
		previous := p.ppuCtrl
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10) // Nametable select
		p.checkNMI(previous)
	case 0x2001: // PPUMASK
		p.ppuMask = value
		p.renderingEnabled = value&0x18 != 0
	case 0x2003: // OAMADDR
		p.oamAddr = value
	case 0x2004: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005: // PPUSCROLL
		p.writePPUScroll(value)
	case 0x2006: // PPUADDR
		p.writePPUAddr(value)
	case 0x2007: // PPUDATA
		p.writePPUData(value)
	}
}

// WriteOAM writes one byte of a sprite DMA transfer. OAMADDR is not changed.
func (p *PPU) WriteOAM(address uint8, value uint8) {
	p.oam[address] = value
}

// Step advances the PPU by one cycle
func (p *PPU) Step() {
	p.cycle++
	if p.cycle >= cyclesPerScanline {
		p.cycle = 0
		p.scanline++

		if p.scanline > lastScanline {
			p.scanline = -1
			p.frameCount++

			if p.frameCompleteCallback != nil {
				p.frameCompleteCallback()
			}
		}
	}

	switch {
	case p.scanline == vblankScanline && p.cycle == 1:
		p.ppuStatus |= 0x80
		p.ppuStatus &= 0x9F // Clear sprite 0 hit and overflow
		if p.ppuCtrl&0x80 != 0 && p.nmiCallback != nil {
			p.nmiCallback()
		}
	case p.scanline == -1 && p.cycle == 1:
		p.ppuStatus &= 0x7F
	case p.scanline == -1 && p.cycle >= 280 && p.cycle <= 304 && p.renderingEnabled:
		p.copyY()
	case p.scanline >= 0 && p.scanline < 240 && p.cycle == 257 && p.renderingEnabled:
		p.copyX()
	}
}

// StepFrame runs the PPU until the current frame completes
func (p *PPU) StepFrame() {
	frame := p.frameCount
	for p.frameCount == frame {
		p.Step()
	}
}

// checkNMI raises NMI when PPUCTRL enables it while the VBL flag is set.
// Rewriting PPUCTRL with NMI already enabled does not raise another.
func (p *PPU) checkNMI(previous uint8) {
	if previous&0x80 != 0 || p.ppuCtrl&0x80 == 0 || p.ppuStatus&0x80 == 0 {
		return
	}
	if p.nmiCallback != nil {
		p.nmiCallback()
	}
}

// writePPUScroll handles writes to PPUSCROLL ($2005)
func (p *PPU) writePPUScroll(value uint8) {
	if !p.w {
		// First write: X scroll
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3) // Coarse X
		p.x = value & 0x07                          // Fine X
		p.w = true
	} else {
		// Second write: Y scroll
		p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12) // Fine Y
		p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)  // Coarse Y
		p.w = false
	}
}

// writePPUAddr handles writes to PPUADDR ($2006)
func (p *PPU) writePPUAddr(value uint8) {
	if !p.w {
		p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
		p.w = true
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
		p.w = false
	}
}

// readPPUData handles reads from PPUDATA ($2007)
func (p *PPU) readPPUData() uint8 {
	var data uint8

	if p.memory != nil {
		if p.v >= 0x3F00 {
			// Palette data is not buffered
			data = p.memory.Read(p.v)
			p.readBuffer = p.memory.Read(p.v & 0x2FFF)
		} else {
			data = p.readBuffer
			p.readBuffer = p.memory.Read(p.v)
		}
	}

	p.incrementAddress()
	return data
}

// writePPUData handles writes to PPUDATA ($2007)
func (p *PPU) writePPUData(value uint8) {
	if p.memory != nil {
		p.memory.Write(p.v, value)
	}
	p.incrementAddress()
}

// incrementAddress advances v by 1 (across) or 32 (down)
func (p *PPU) incrementAddress() {
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x3FFF
}

// copyX copies all X-related bits from t to v (bits 10, 4-0)
func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

// copyY copies all Y-related bits from t to v (bits 11, 14-5)
func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}
