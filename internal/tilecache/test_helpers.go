package tilecache

import (
	"nesview/internal/palette"
	"nesview/internal/snapshot"
)

// Test helpers shared by the package tests

// newTestTiles builds 512 distinct tiles and a signature with every region at generation 1.
func newTestTiles() (*[snapshot.TileCount]*snapshot.Tile, snapshot.BankSignature) {
	var tiles [snapshot.TileCount]*snapshot.Tile
	for i := range tiles {
		t := &snapshot.Tile{}
		for p := range t {
			t[p] = uint8((i + p) & 0x03)
		}
		tiles[i] = t
	}
	var sig snapshot.BankSignature
	for r := range sig {
		sig[r] = 1
	}
	return &tiles, sig
}

// newTestTracker returns a tracker that has seen one palette update.
func newTestTracker() (*palette.Tracker, [16]uint32, [16]uint32) {
	var bg, spr [16]uint32
	for i := range bg {
		bg[i] = palette.NESColor(uint8(0x11 + i))
		spr[i] = palette.NESColor(uint8(0x21 + i))
	}
	tracker := palette.NewTracker()
	tracker.Update(bg, spr)
	return tracker, bg, spr
}
