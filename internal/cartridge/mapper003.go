package cartridge

// Mapper003 implements CNROM (mapper 3)
// PRG is fixed like NROM. Any write to 0x8000-0xFFFF selects the 8KB CHR
// bank mapped at PPU 0x0000-0x1FFF.
//
//	7  bit  0
//	---- ----
//	cccc ccCC
//	++++-++++- CHR bank (wrapped to the bank count)
type Mapper003 struct {
	cart     *Cartridge
	prgBanks uint8
	chrBank  int
}

// NewMapper003 creates a new CNROM mapper with CHR bank 0 selected
func NewMapper003(cart *Cartridge) *Mapper003 {
	m := &Mapper003{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x4000),
	}
	cart.selectCHR8K(0)
	return m
}

// ReadPRG reads from PRG ROM/RAM
func (m *Mapper003) ReadPRG(address uint16) uint8 {
	return readFixedPRG(m.cart, m.prgBanks, address)
}

// WritePRG writes PRG RAM or the CHR bank register
func (m *Mapper003) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x8000:
		bank := int(value) % m.cart.CHRBanks()
		if bank != m.chrBank {
			m.chrBank = bank
			m.cart.selectCHR8K(bank)
		}
	case address >= 0x6000:
		m.cart.sram[address-0x6000] = value
	}
}

// ReadCHR reads through the region windows
func (m *Mapper003) ReadCHR(address uint16) uint8 {
	if address < 0x2000 {
		return m.cart.readCHR(address)
	}
	return 0
}

// WriteCHR writes to CHR RAM. Writes to CHR ROM are ignored.
func (m *Mapper003) WriteCHR(address uint16, value uint8) {
	if address < 0x2000 && m.cart.hasCHRRAM {
		m.cart.writeCHR(address, value)
	}
}

// CHRBank returns the selected 8KB CHR bank
func (m *Mapper003) CHRBank() int {
	return m.chrBank
}
