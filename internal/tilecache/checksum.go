package tilecache

import "nesview/internal/snapshot"

// FNV-1a parameters, identical to hash/fnv's New32a.
const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// Checksum returns the 32-bit FNV-1a hash of the tile's pixel values.
// An absent tile hashes like a fully transparent one.
func Checksum(tile *snapshot.Tile) uint32 {
	h := uint32(fnvOffset32)
	if tile == nil {
		for i := 0; i < snapshot.TilePixels; i++ {
			h *= fnvPrime32
		}
		return h
	}
	for _, v := range tile {
		h ^= uint32(v)
		h *= fnvPrime32
	}
	return h
}
