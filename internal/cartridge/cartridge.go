// Package cartridge implements ROM loading and CHR bank mapping for NES cartridges.
//
// Pattern memory is kept twice: as raw bitplane bytes for the PPU bus and as
// decoded tiles for the tile-sheet cache. The PPU sees CHR through eight 1KB
// region windows. Each window carries a generation number that changes
// whenever the window is pointed at different memory.
package cartridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"nesview/internal/snapshot"
)

const (
	chrBankSize   = 0x2000
	chrRegionSize = 0x0400
	tileBytes     = 16
)

// Cartridge represents a NES cartridge
type Cartridge struct {
	// ROM data
	prgROM []uint8
	chr    []uint8
	tiles  []snapshot.Tile

	// Mapper information
	mapperID uint8
	mapper   Mapper

	// Mirroring mode
	mirror MirrorMode

	// Battery-backed RAM
	hasBattery bool
	sram       [0x2000]uint8

	// CHR memory type
	hasCHRRAM bool

	// CHR region windows
	regionOffset [snapshot.RegionCount]int
	generation   snapshot.BankSignature
	generations  uint32
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

// String returns the mode name
func (m MirrorMode) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleScreen0:
		return "single-screen 0"
	case MirrorSingleScreen1:
		return "single-screen 1"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return fmt.Sprintf("MirrorMode(%d)", uint8(m))
	}
}

// Mapper interface for different cartridge mappers
type Mapper interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// iNES header structure
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// LoadFromFile loads a cartridge from an iNES file
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cart, err := LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return cart, nil
}

// LoadFromReader loads a cartridge from an io.Reader
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return nil, errors.New("invalid iNES file")
	}
	if header.PRGROMSize == 0 {
		return nil, errors.New("invalid ROM: PRG ROM size cannot be zero")
	}

	mirror := MirrorHorizontal
	if (header.Flags6 & 0x08) != 0 {
		mirror = MirrorFourScreen
	} else if (header.Flags6 & 0x01) != 0 {
		mirror = MirrorVertical
	}

	// Skip trainer if present
	if (header.Flags6 & 0x04) != 0 {
		trainer := make([]uint8, 512)
		if _, err := io.ReadFull(r, trainer); err != nil {
			return nil, err
		}
	}

	prgROM := make([]uint8, int(header.PRGROMSize)*16384)
	if _, err := io.ReadFull(r, prgROM); err != nil {
		return nil, err
	}

	var chr []uint8
	if header.CHRROMSize > 0 {
		chr = make([]uint8, int(header.CHRROMSize)*chrBankSize)
		if _, err := io.ReadFull(r, chr); err != nil {
			return nil, err
		}
	}

	cart := New(prgROM, chr, (header.Flags6>>4)|(header.Flags7&0xF0), mirror)
	cart.hasBattery = (header.Flags6 & 0x02) != 0
	return cart, nil
}

// New builds a cartridge from PRG and CHR images. A nil or empty chr
// allocates 8KB of CHR RAM.
func New(prgROM, chr []uint8, mapperID uint8, mirror MirrorMode) *Cartridge {
	cart := &Cartridge{
		prgROM:   prgROM,
		mapperID: mapperID,
		mirror:   mirror,
	}

	if len(chr) == 0 {
		chr = make([]uint8, chrBankSize)
		cart.hasCHRRAM = true
	} else if rem := len(chr) % chrBankSize; rem != 0 {
		chr = append(chr, make([]uint8, chrBankSize-rem)...)
	}
	cart.chr = chr

	cart.tiles = make([]snapshot.Tile, len(chr)/tileBytes)
	for i := range cart.tiles {
		cart.decodeTile(i)
	}

	cart.selectCHR8K(0)
	cart.mapper = createMapper(mapperID, cart)
	return cart
}

// ReadPRG reads from PRG ROM/RAM
func (c *Cartridge) ReadPRG(address uint16) uint8 {
	return c.mapper.ReadPRG(address)
}

// WritePRG writes to PRG ROM/RAM or mapper registers
func (c *Cartridge) WritePRG(address uint16, value uint8) {
	c.mapper.WritePRG(address, value)
}

// ReadCHR reads from CHR ROM/RAM
func (c *Cartridge) ReadCHR(address uint16) uint8 {
	return c.mapper.ReadCHR(address)
}

// WriteCHR writes to CHR ROM/RAM
func (c *Cartridge) WriteCHR(address uint16, value uint8) {
	c.mapper.WriteCHR(address, value)
}

// GetMirrorMode returns the cartridge's mirroring mode
func (c *Cartridge) GetMirrorMode() MirrorMode {
	return c.mirror
}

// MapperID returns the iNES mapper number
func (c *Cartridge) MapperID() uint8 {
	return c.mapperID
}

// HasCHRRAM reports whether pattern memory is writable
func (c *Cartridge) HasCHRRAM() bool {
	return c.hasCHRRAM
}

// HasBattery reports whether the header marks battery-backed PRG RAM
func (c *Cartridge) HasBattery() bool {
	return c.hasBattery
}

// CHRBanks returns the number of 8KB CHR banks
func (c *Cartridge) CHRBanks() int {
	return len(c.chr) / chrBankSize
}

// PatternTiles fills dst with the 512 tiles currently visible to the PPU.
// The references alias cartridge memory.
func (c *Cartridge) PatternTiles(dst *[snapshot.TileCount]*snapshot.Tile) {
	for r, offset := range c.regionOffset {
		first := offset / tileBytes
		for i := 0; i < snapshot.TilesPerRegion; i++ {
			dst[r*snapshot.TilesPerRegion+i] = &c.tiles[first+i]
		}
	}
}

// BankSignature returns the generation of each 1KB region window
func (c *Cartridge) BankSignature() snapshot.BankSignature {
	return c.generation
}

// selectCHR1K points region (0-7) at 1KB page of CHR memory.
func (c *Cartridge) selectCHR1K(region, page int) {
	pages := len(c.chr) / chrRegionSize
	offset := (page % pages) * chrRegionSize
	if c.regionOffset[region] == offset && c.generation[region] != 0 {
		return
	}
	c.regionOffset[region] = offset
	c.generations++
	c.generation[region] = c.generations
}

// selectCHR8K maps an 8KB bank across all eight regions.
func (c *Cartridge) selectCHR8K(bank int) {
	for r := 0; r < snapshot.RegionCount; r++ {
		c.selectCHR1K(r, bank*snapshot.RegionCount+r)
	}
}

func (c *Cartridge) readCHR(address uint16) uint8 {
	address &= 0x1FFF
	return c.chr[c.regionOffset[address>>10]+int(address&0x03FF)]
}

// writeCHR stores a byte and re-decodes the affected tile row in place.
// The region generation is unchanged.
func (c *Cartridge) writeCHR(address uint16, value uint8) {
	address &= 0x1FFF
	offset := c.regionOffset[address>>10] + int(address&0x03FF)
	if c.chr[offset] == value {
		return
	}
	c.chr[offset] = value
	c.decodeRow(offset/tileBytes, offset%8)
}

func (c *Cartridge) decodeTile(index int) {
	for row := 0; row < 8; row++ {
		c.decodeRow(index, row)
	}
}

// decodeRow combines the two bitplanes of one tile row into 2-bit pixels.
func (c *Cartridge) decodeRow(index, row int) {
	base := index * tileBytes
	lo := c.chr[base+row]
	hi := c.chr[base+row+8]
	tile := &c.tiles[index]
	for x := 0; x < 8; x++ {
		shift := uint(7 - x)
		tile[row*8+x] = (lo>>shift)&1 | ((hi>>shift)&1)<<1
	}
}

// createMapper creates the appropriate mapper for the given ID
func createMapper(id uint8, cart *Cartridge) Mapper {
	switch id {
	case 0:
		return NewMapper000(cart)
	case 3:
		return NewMapper003(cart)
	default:
		// Default to mapper 0 for unsupported mappers
		return NewMapper000(cart)
	}
}
