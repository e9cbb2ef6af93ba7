// Package pipeline sequences the per-frame cache updates.
//
// One emulation step produces one snapshot, which is consumed in a fixed
// order before the next step: palette tracker, tile-sheet cache, background
// diff, sprite update. Each stage reads the dirty results of the stage before
// it from the same frame. Nothing here is safe for concurrent use.
package pipeline

import (
	"nesview/internal/background"
	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/sprite"
	"nesview/internal/tilecache"
)

// Core is the emulation core driven by the pipeline.
type Core interface {
	// StepFrame runs the core until one frame is complete.
	StepFrame()
}

// Pipeline owns every cache and drives them once per frame.
type Pipeline struct {
	core      Core
	extractor *snapshot.Extractor

	palettes   *palette.Tracker
	sheets     *tilecache.Cache
	background *background.Engine
	sprites    *sprite.Engine

	last   *snapshot.Snapshot
	frames uint64

	paused   bool
	stepOnce bool
}

// New creates a pipeline. Sheets are written to store and the sheet table is
// published through table.
func New(core Core, extractor *snapshot.Extractor, store tilecache.ImageStore, table tilecache.AddressTable) *Pipeline {
	return &Pipeline{
		core:       core,
		extractor:  extractor,
		palettes:   palette.NewTracker(),
		sheets:     tilecache.New(store, table),
		background: background.NewEngine(),
		sprites:    sprite.NewEngine(),
	}
}

// Advance runs one pipeline pass unless paused. While paused, a pending Step
// allows exactly one pass. It reports whether a frame was processed.
func (p *Pipeline) Advance() bool {
	if !p.Ready() {
		return false
	}
	p.stepOnce = false

	p.core.StepFrame()
	p.Process(p.extractor.Extract())
	return true
}

// Process consumes one snapshot. It must not be called before the core has
// produced a frame.
func (p *Pipeline) Process(s *snapshot.Snapshot) {
	p.palettes.Update(s.BackgroundPalette, s.SpritePalette)
	p.sheets.Update(&s.Tiles, p.palettes, s.Control.BackgroundBank(), s.Control.SpriteBank(), s.BankSignature)
	p.background.Update(s, p.sheets)
	p.sprites.Update(s, p.sheets)

	p.last = s
	p.frames++
}

// Pause halts the pipeline between frames.
func (p *Pipeline) Pause() { p.paused = true }

// Resume continues free-running frames.
func (p *Pipeline) Resume() {
	p.paused = false
	p.stepOnce = false
}

// TogglePause flips the pause state.
func (p *Pipeline) TogglePause() {
	if p.paused {
		p.Resume()
		return
	}
	p.Pause()
}

// Step requests exactly one pass on the next Advance while paused.
func (p *Pipeline) Step() {
	if p.paused {
		p.stepOnce = true
	}
}

// Ready reports whether the next Advance will process a frame.
func (p *Pipeline) Ready() bool { return !p.paused || p.stepOnce }

// Paused reports whether the pipeline is paused.
func (p *Pipeline) Paused() bool { return p.paused }

// Frames returns the number of processed frames.
func (p *Pipeline) Frames() uint64 { return p.frames }

// Snapshot returns the last processed snapshot, or nil. Its borrowed fields
// are only valid until the next Advance.
func (p *Pipeline) Snapshot() *snapshot.Snapshot { return p.last }

// Palettes returns the palette tracker.
func (p *Pipeline) Palettes() *palette.Tracker { return p.palettes }

// Sheets returns the tile-sheet cache.
func (p *Pipeline) Sheets() *tilecache.Cache { return p.sheets }

// Background returns the background diff engine.
func (p *Pipeline) Background() *background.Engine { return p.background }

// Sprites returns the sprite engine.
func (p *Pipeline) Sprites() *sprite.Engine { return p.sprites }

// BackgroundColor returns the current backdrop color.
func (p *Pipeline) BackgroundColor() palette.Color { return p.palettes.BackgroundColor() }
