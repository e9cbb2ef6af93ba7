package tilecache

import "image"

// Handle addresses a stored sheet image. Zero is never a valid handle.
type Handle uint64

// ImageStore holds encoded sheet images.
//
// Store must copy img if it keeps the pixels: the cache reuses the buffer
// for the next regeneration of the same slot.
type ImageStore interface {
	Store(img *image.RGBA) Handle
	Release(h Handle)
}

// AddressTable receives the full slot-to-handle table in one rewrite.
type AddressTable interface {
	Publish(table [SheetCount]Handle)
}

// SheetStore is both halves of the presentation side of the cache.
type SheetStore interface {
	ImageStore
	AddressTable
}

// MemoryStore keeps sheet images in memory. It is used by the headless
// backend and by tests.
type MemoryStore struct {
	next      Handle
	images    map[Handle]*image.RGBA
	table     [SheetCount]Handle
	published int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: make(map[Handle]*image.RGBA)}
}

// Store implements ImageStore.
func (m *MemoryStore) Store(img *image.RGBA) Handle {
	m.next++
	clone := image.NewRGBA(img.Rect)
	copy(clone.Pix, img.Pix)
	m.images[m.next] = clone
	return m.next
}

// Release implements ImageStore.
func (m *MemoryStore) Release(h Handle) {
	delete(m.images, h)
}

// Publish implements AddressTable.
func (m *MemoryStore) Publish(table [SheetCount]Handle) {
	m.table = table
	m.published++
}

// Image returns the image stored under h, or nil.
func (m *MemoryStore) Image(h Handle) *image.RGBA {
	return m.images[h]
}

// Table returns the last published table.
func (m *MemoryStore) Table() [SheetCount]Handle {
	return m.table
}

// Live returns the number of images currently held.
func (m *MemoryStore) Live() int {
	return len(m.images)
}

// Publishes returns how many times the table has been rewritten.
func (m *MemoryStore) Publishes() int {
	return m.published
}
