// Package tilecache renders and caches the tile sheets that the background
// and sprite layers sample from, regenerating only what a frame invalidated.
package tilecache

import (
	"image"
	"log"

	"nesview/internal/palette"
	"nesview/internal/snapshot"
)

// FullRegenerationLimit is the number of consecutive frames that may
// regenerate every sheet before a diagnostic is raised.
const FullRegenerationLimit = 60

// Diagnostic describes a non-fatal performance anomaly.
type Diagnostic struct {
	Frames  int // consecutive full regenerations
	Message string
}

// DiagnosticFunc receives diagnostics. The pipeline is never interrupted.
type DiagnosticFunc func(Diagnostic)

func logDiagnostic(d Diagnostic) {
	log.Printf("[TileCache] %s", d.Message)
}

// SheetSet is a bitset over the twelve sheet slots.
type SheetSet uint16

func (s SheetSet) has(slot int) bool { return s&(1<<uint(slot)) != 0 }

// Count returns the number of slots in the set.
func (s SheetSet) Count() int {
	n := 0
	for ; s != 0; s &= s - 1 {
		n++
	}
	return n
}

const allSheets SheetSet = 1<<SheetCount - 1

type sheet struct {
	img    *image.RGBA
	handle Handle
}

// Cache owns the twelve sheets and the baselines used to invalidate them.
type Cache struct {
	store ImageStore
	table AddressTable

	sheets [SheetCount]sheet

	checksums [snapshot.TileCount]uint32
	signature snapshot.BankSignature
	bgBank    int
	sprBank   int
	primed    bool

	bankDirty [bankCount]bool
	updated   SheetSet

	fullStreak int
	diagnostic DiagnosticFunc
}

// New creates a cache writing sheets to store and publishing through table.
func New(store ImageStore, table AddressTable) *Cache {
	c := &Cache{
		store:      store,
		table:      table,
		bgBank:     -1,
		diagnostic: logDiagnostic,
	}
	for i := range c.sheets {
		c.sheets[i].img = image.NewRGBA(image.Rect(0, 0, SheetSize, SheetSize))
	}
	return c
}

// SetDiagnosticFunc replaces the diagnostic sink. nil discards diagnostics.
func (c *Cache) SetDiagnosticFunc(fn DiagnosticFunc) {
	c.diagnostic = fn
}

// Update brings the sheets up to date for one frame.
//
// tiles is borrowed for the duration of the call. Every tile is checksummed
// on every call so that in-place writes to pattern memory are caught even
// when the bank signature is unchanged.
func (c *Cache) Update(tiles *[snapshot.TileCount]*snapshot.Tile, palettes *palette.Tracker, bgBank, sprBank int, signature snapshot.BankSignature) {
	c.updated = 0
	bgBank &= 1
	c.sprBank = sprBank & 1

	c.detectBankChanges(tiles, signature)

	bgDirty := palettes.Dirty(palette.Background)
	sprDirty := palettes.Dirty(palette.Sprite)
	bgBankChanged := bgBank != c.bgBank

	for g := 0; g < snapshot.GroupCount; g++ {
		key := SheetKey{Role: palette.Background, Bank: bgBank, Group: g}
		if !c.primed || bgDirty.Has(g) || c.bankDirty[bgBank] || bgBankChanged {
			c.regenerate(key, tiles, palettes)
		}
	}
	for b := 0; b < bankCount; b++ {
		for g := 0; g < snapshot.GroupCount; g++ {
			key := SheetKey{Role: palette.Sprite, Bank: b, Group: g}
			if !c.primed || sprDirty.Has(g) || c.bankDirty[b] {
				c.regenerate(key, tiles, palettes)
			}
		}
	}

	c.bgBank = bgBank
	c.primed = true

	if c.updated != 0 {
		c.publish()
	}
	c.trackFullRegeneration()
}

// detectBankChanges compares region generations and tile checksums against
// the previous call and refreshes both baselines.
func (c *Cache) detectBankChanges(tiles *[snapshot.TileCount]*snapshot.Tile, signature snapshot.BankSignature) {
	for b := range c.bankDirty {
		c.bankDirty[b] = false
		for r := b * snapshot.RegionsPerBank; r < (b+1)*snapshot.RegionsPerBank; r++ {
			if signature[r] != c.signature[r] {
				c.bankDirty[b] = true
			}
		}
	}
	c.signature = signature

	for i, tile := range tiles {
		sum := Checksum(tile)
		if sum != c.checksums[i] || !c.primed {
			c.checksums[i] = sum
			c.bankDirty[i/snapshot.TilesPerBank] = true
		}
	}
}

func (c *Cache) regenerate(key SheetKey, tiles *[snapshot.TileCount]*snapshot.Tile, palettes *palette.Tracker) {
	slot := key.Slot()
	s := &c.sheets[slot]

	renderSheet(s.img, tiles, key.Bank, palettes.Group(key.Role, key.Group))

	if s.handle != 0 {
		c.store.Release(s.handle)
	}
	s.handle = c.store.Store(s.img)
	c.updated |= 1 << uint(slot)
}

func (c *Cache) publish() {
	var table [SheetCount]Handle
	for i := range c.sheets {
		table[i] = c.sheets[i].handle
	}
	c.table.Publish(table)
}

func (c *Cache) trackFullRegeneration() {
	if c.updated != allSheets {
		c.fullStreak = 0
		return
	}
	c.fullStreak++
	if c.fullStreak < FullRegenerationLimit {
		return
	}
	if c.diagnostic != nil {
		c.diagnostic(Diagnostic{
			Frames:  c.fullStreak,
			Message: "all 12 tile sheets regenerated for 60 consecutive frames (heavy bank switching?)",
		})
	}
	c.fullStreak = 0
}

// Close releases every stored sheet and publishes an empty table. The next
// Update regenerates all twelve sheets.
func (c *Cache) Close() {
	for i := range c.sheets {
		if c.sheets[i].handle != 0 {
			c.store.Release(c.sheets[i].handle)
			c.sheets[i].handle = 0
		}
	}
	c.table.Publish([SheetCount]Handle{})
	c.updated = 0
	c.primed = false
	c.bgBank = -1
	c.fullStreak = 0
}

// SheetUpdated reports whether a sheet of role and group was regenerated
// by the last Update. For sprites it is true if either bank's sheet was.
func (c *Cache) SheetUpdated(role palette.Role, group int) bool {
	if role == palette.Background {
		return c.updated.has(SheetKey{Role: role, Group: group}.Slot())
	}
	return c.updated.has(SheetKey{Role: role, Bank: 0, Group: group}.Slot()) ||
		c.updated.has(SheetKey{Role: role, Bank: 1, Group: group}.Slot())
}

// Updated reports whether the sheet for key was regenerated by the last Update.
func (c *Cache) Updated(key SheetKey) bool {
	return c.updated.has(key.Slot())
}

// UpdatedSet returns the slots regenerated by the last Update.
func (c *Cache) UpdatedSet() SheetSet {
	return c.updated
}

// Handle returns the current handle of the sheet for key, or 0 before the first Update.
func (c *Cache) Handle(key SheetKey) Handle {
	return c.sheets[key.Slot()].handle
}

// Image returns the cache's raster for key. It is overwritten on regeneration.
func (c *Cache) Image(key SheetKey) *image.RGBA {
	return c.sheets[key.Slot()].img
}

// BankDirty reports whether bank was invalidated by the last Update.
func (c *Cache) BankDirty(bank int) bool {
	return c.bankDirty[bank&1]
}

// Banks returns the background and sprite banks seen by the last Update.
func (c *Cache) Banks() (bg, spr int) {
	return c.bgBank, c.sprBank
}
