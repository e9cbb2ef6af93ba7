package cartridge

// Mapper000 implements NROM (mapper 0)
// NROM has no bank switching. It supports:
// - 16KB or 32KB PRG ROM (16KB is mirrored to fill 32KB address space)
// - 8KB CHR ROM or CHR RAM
// - 8KB PRG RAM (SRAM) at 0x6000-0x7FFF
type Mapper000 struct {
	cart     *Cartridge
	prgBanks uint8 // Number of 16KB PRG banks (1 or 2)
}

// NewMapper000 creates a new NROM mapper
func NewMapper000(cart *Cartridge) *Mapper000 {
	return &Mapper000{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x4000),
	}
}

// ReadPRG reads from PRG ROM/RAM
func (m *Mapper000) ReadPRG(address uint16) uint8 {
	return readFixedPRG(m.cart, m.prgBanks, address)
}

// WritePRG writes to PRG RAM. Writes to ROM are ignored.
func (m *Mapper000) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		m.cart.sram[address-0x6000] = value
	}
}

// ReadCHR reads through the region windows
func (m *Mapper000) ReadCHR(address uint16) uint8 {
	if address < 0x2000 {
		return m.cart.readCHR(address)
	}
	return 0
}

// WriteCHR writes to CHR RAM. Writes to CHR ROM are ignored.
func (m *Mapper000) WriteCHR(address uint16, value uint8) {
	if address < 0x2000 && m.cart.hasCHRRAM {
		m.cart.writeCHR(address, value)
	}
}

// readFixedPRG maps 0x6000-0x7FFF to SRAM and 0x8000-0xFFFF to a 16KB
// (mirrored) or 32KB PRG image.
func readFixedPRG(cart *Cartridge, prgBanks uint8, address uint16) uint8 {
	switch {
	case address >= 0x8000:
		if len(cart.prgROM) == 0 {
			return 0
		}
		offset := address - 0x8000
		if prgBanks == 1 {
			offset &= 0x3FFF
		}
		if int(offset) < len(cart.prgROM) {
			return cart.prgROM[offset]
		}
		return 0
	case address >= 0x6000:
		return cart.sram[address-0x6000]
	}
	return 0
}
