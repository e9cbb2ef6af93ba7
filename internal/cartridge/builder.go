package cartridge

import (
	"bytes"
	"fmt"

	"nesview/internal/snapshot"
)

// ROMConfig describes an iNES image to synthesize
type ROMConfig struct {
	PRGSize    uint8      // PRG ROM size in 16KB units
	CHRSize    uint8      // CHR ROM size in 8KB units (0 = CHR RAM)
	MapperID   uint8      // Mapper number
	Mirroring  MirrorMode // Nametable mirroring
	HasBattery bool       // Battery-backed SRAM
	HasTrainer bool       // 512-byte trainer
	CHRData    []uint8    // CHR ROM initial data
}

// ROMBuilder provides a fluent interface for building iNES images
type ROMBuilder struct {
	config ROMConfig
}

// NewROMBuilder creates a builder for a 16KB NROM image with one CHR bank
func NewROMBuilder() *ROMBuilder {
	return &ROMBuilder{
		config: ROMConfig{
			PRGSize:   1,
			CHRSize:   1,
			Mirroring: MirrorHorizontal,
		},
	}
}

// WithPRGSize sets the PRG ROM size in 16KB units
func (b *ROMBuilder) WithPRGSize(size uint8) *ROMBuilder {
	b.config.PRGSize = size
	return b
}

// WithCHRSize sets the CHR ROM size in 8KB units (0 = CHR RAM)
func (b *ROMBuilder) WithCHRSize(size uint8) *ROMBuilder {
	b.config.CHRSize = size
	return b
}

// WithCHRRAM configures the ROM to use CHR RAM instead of CHR ROM
func (b *ROMBuilder) WithCHRRAM() *ROMBuilder {
	b.config.CHRSize = 0
	return b
}

// WithMapper sets the mapper ID
func (b *ROMBuilder) WithMapper(mapperID uint8) *ROMBuilder {
	b.config.MapperID = mapperID
	return b
}

// WithMirroring sets the nametable mirroring mode
func (b *ROMBuilder) WithMirroring(mirroring MirrorMode) *ROMBuilder {
	b.config.Mirroring = mirroring
	return b
}

// WithBattery enables battery-backed SRAM
func (b *ROMBuilder) WithBattery() *ROMBuilder {
	b.config.HasBattery = true
	return b
}

// WithTrainer adds an empty 512-byte trainer
func (b *ROMBuilder) WithTrainer() *ROMBuilder {
	b.config.HasTrainer = true
	return b
}

// WithCHRData sets the CHR ROM data
func (b *ROMBuilder) WithCHRData(data []uint8) *ROMBuilder {
	b.config.CHRData = append([]uint8(nil), data...)
	return b
}

// WithTile encodes tile at index (0-511) of 8KB bank into CHR data
func (b *ROMBuilder) WithTile(bank, index int, tile *snapshot.Tile) *ROMBuilder {
	offset := bank*chrBankSize + index*tileBytes
	if need := offset + tileBytes; len(b.config.CHRData) < need {
		b.config.CHRData = append(b.config.CHRData, make([]uint8, need-len(b.config.CHRData))...)
	}
	planes := EncodeTile(tile)
	copy(b.config.CHRData[offset:], planes[:])
	return b
}

// Build generates the ROM data based on the current configuration
func (b *ROMBuilder) Build() ([]byte, error) {
	return GenerateROM(b.config)
}

// BuildCartridge generates and loads the ROM as a cartridge
func (b *ROMBuilder) BuildCartridge() (*Cartridge, error) {
	romData, err := b.Build()
	if err != nil {
		return nil, err
	}
	return LoadFromReader(bytes.NewReader(romData))
}

// GenerateROM creates an iNES image from config
func GenerateROM(config ROMConfig) ([]byte, error) {
	header, err := createINESHeader(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create iNES header: %w", err)
	}

	result := append([]byte{}, header...)
	if config.HasTrainer {
		result = append(result, make([]byte, 512)...)
	}

	result = append(result, make([]byte, int(config.PRGSize)*16384)...)

	if config.CHRSize > 0 {
		chrROM := make([]byte, int(config.CHRSize)*chrBankSize)
		copy(chrROM, config.CHRData)
		result = append(result, chrROM...)
	}

	return result, nil
}

// createINESHeader creates an iNES header based on configuration
func createINESHeader(config ROMConfig) ([]byte, error) {
	if config.PRGSize == 0 {
		return nil, fmt.Errorf("PRG ROM size cannot be zero")
	}

	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = config.PRGSize
	header[5] = config.CHRSize

	flags6 := uint8(0)
	if config.Mirroring == MirrorVertical {
		flags6 |= 0x01
	}
	if config.HasBattery {
		flags6 |= 0x02
	}
	if config.HasTrainer {
		flags6 |= 0x04
	}
	if config.Mirroring == MirrorFourScreen {
		flags6 |= 0x08
	}
	flags6 |= (config.MapperID & 0x0F) << 4
	header[6] = flags6
	header[7] = config.MapperID & 0xF0

	return header, nil
}

// EncodeTile splits 2-bit pixels into the two 8-byte bitplanes
func EncodeTile(tile *snapshot.Tile) [tileBytes]uint8 {
	var planes [tileBytes]uint8
	for row := 0; row < 8; row++ {
		for x := 0; x < 8; x++ {
			p := tile[row*8+x]
			bit := uint8(0x80) >> uint(x)
			if p&0x01 != 0 {
				planes[row] |= bit
			}
			if p&0x02 != 0 {
				planes[row+8] |= bit
			}
		}
	}
	return planes
}
