//go:build !headless
// +build !headless

package graphics

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"nesview/internal/tilecache"
)

// EbitenSheetStore keeps tile sheets as GPU images
type EbitenSheetStore struct {
	next   tilecache.Handle
	images map[tilecache.Handle]*ebiten.Image
	table  [tilecache.SheetCount]*ebiten.Image
}

// NewEbitenSheetStore creates an empty store
func NewEbitenSheetStore() *EbitenSheetStore {
	return &EbitenSheetStore{images: make(map[tilecache.Handle]*ebiten.Image)}
}

// Store uploads img into a new texture
func (s *EbitenSheetStore) Store(img *image.RGBA) tilecache.Handle {
	b := img.Bounds()
	tex := ebiten.NewImage(b.Dx(), b.Dy())
	tex.WritePixels(img.Pix)

	s.next++
	s.images[s.next] = tex
	return s.next
}

// Release frees the texture behind h
func (s *EbitenSheetStore) Release(h tilecache.Handle) {
	if tex, ok := s.images[h]; ok {
		tex.Deallocate()
		delete(s.images, h)
	}
}

// Publish resolves the handle table to textures
func (s *EbitenSheetStore) Publish(table [tilecache.SheetCount]tilecache.Handle) {
	for slot, h := range table {
		s.table[slot] = s.images[h]
	}
}

// Sheet returns the texture currently published for key, or nil
func (s *EbitenSheetStore) Sheet(key tilecache.SheetKey) *ebiten.Image {
	return s.table[key.Slot()]
}

// Live returns the number of textures held
func (s *EbitenSheetStore) Live() int {
	return len(s.images)
}
