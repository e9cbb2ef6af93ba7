package cartridge

import (
	"nesview/internal/snapshot"
)

// solidTile returns a tile filled with one pixel value
func solidTile(v uint8) *snapshot.Tile {
	var t snapshot.Tile
	for i := range t {
		t[i] = v & 0x03
	}
	return &t
}

// banked builds a CHR image where every tile of bank b is solid value b+1
func banked(banks int) []uint8 {
	b := NewROMBuilder()
	for bank := 0; bank < banks; bank++ {
		for i := 0; i < snapshot.TileCount; i++ {
			b.WithTile(bank, i, solidTile(uint8(bank+1)))
		}
	}
	return b.config.CHRData
}
