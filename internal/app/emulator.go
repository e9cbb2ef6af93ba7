// Package app provides emulator integration for the main application.
package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"nesview/internal/cartridge"
	"nesview/internal/memory"
	"nesview/internal/pipeline"
	"nesview/internal/ppu"
	"nesview/internal/snapshot"
	"nesview/internal/tilecache"
)

const (
	scrollStep   = 8
	timingWindow = 60
)

// Emulator owns the picture-processor core, the scene feeding it and the
// frame pipeline reading it.
type Emulator struct {
	cart      *cartridge.Cartridge
	memory    *memory.PPUMemory
	ppu       *ppu.PPU
	pipeline  *pipeline.Pipeline
	extractor *snapshot.Extractor
	scene     *DemoScene
	vram      vram

	// Viewer controls
	chrBank          int
	scrollX, scrollY int
	preset           int

	// Performance monitoring
	frameTimes        *CircularTimingBuffer
	frameStart        time.Time
	lastFrameTime     time.Duration
	coreFrames        uint64
	lastCoreTime      time.Duration
	sheetsRegenerated uint64
	cellsRepainted    uint64
	startTime         time.Time
}

// EmulatorStats contains pipeline counters and frame timing
type EmulatorStats struct {
	FrameCount        uint64
	SheetsRegenerated uint64
	CellsRepainted    uint64
	LastSheets        int
	LastRepaints      int
	SpritesShown      int
	CoreFrames        uint64
	LastCoreTime      time.Duration
	LastFrameTime     time.Duration
	AverageFrameTime  time.Duration
	FrameJitter       time.Duration
}

// NewEmulator wires cart into PPU memory, the PPU, the snapshot extractor
// and the pipeline. Sheets go to store; filter, if set, adjusts every
// palette color.
func NewEmulator(cart *cartridge.Cartridge, store tilecache.SheetStore, config *Config, filter snapshot.ColorFilter) *Emulator {
	mem := memory.NewPPUMemory(cart, memory.MirrorMode(cart.GetMirrorMode()))

	p := ppu.New()
	p.Reset()
	p.SetMemory(mem)
	p.SetPatternSource(cart)

	extractor := snapshot.NewExtractor(p)
	if filter != nil {
		extractor.SetColorFilter(filter)
	}

	e := &Emulator{
		cart:       cart,
		memory:     mem,
		ppu:        p,
		pipeline:   pipeline.New(p, extractor, store, store),
		extractor:  extractor,
		scene:      NewDemoScene(p, config.Viewer.Animate),
		vram:       vram{ppu: p},
		frameTimes: NewCircularTimingBuffer(timingWindow),
		startTime:  time.Now(),
	}

	if !config.Debug.LogDiagnostics {
		e.pipeline.Sheets().SetDiagnosticFunc(nil)
	}

	e.scene.Setup()
	e.SetPalettePreset(config.Viewer.PalettePreset)

	p.SetNMICallback(e.vblank)
	p.SetFrameCompleteCallback(e.frameComplete)
	return e
}

// vblank is the NMI handler: the scene animates while the PPU is idle
func (e *Emulator) vblank() {
	if e.scene.Animate() {
		e.applyScroll()
	}
}

// frameComplete records the time the core spent on the frame
func (e *Emulator) frameComplete() {
	e.coreFrames++
	e.lastCoreTime = time.Since(e.frameStart)
}

// Update advances one frame unless the pipeline is paused. It reports
// whether a frame was processed.
func (e *Emulator) Update() bool {
	if !e.pipeline.Ready() {
		return false
	}
	e.frameStart = time.Now()
	e.pipeline.Advance()

	e.lastFrameTime = time.Since(e.frameStart)
	e.frameTimes.Add(e.lastFrameTime)
	e.sheetsRegenerated += uint64(e.pipeline.Sheets().UpdatedSet().Count())
	e.cellsRepainted += uint64(e.pipeline.Background().Repaints())
	return true
}

// applyScroll reloads the scroll latch after VRAM address writes
func (e *Emulator) applyScroll() {
	e.vram.setScroll(e.scrollX, e.scrollY)
}

// Scroll moves the viewport by whole tiles, wrapping around the plane
func (e *Emulator) Scroll(dx, dy int) {
	const planeW, planeH = 2 * snapshot.ViewportWidth, 2 * snapshot.ViewportHeight
	e.scrollX = ((e.scrollX+dx*scrollStep)%planeW + planeW) % planeW
	e.scrollY = ((e.scrollY+dy*scrollStep)%planeH + planeH) % planeH
	e.applyScroll()
}

// ScrollPosition returns the absolute scroll position
func (e *Emulator) ScrollPosition() (x, y int) {
	return e.scrollX, e.scrollY
}

// ToggleBackgroundTable switches the background between pattern tables
func (e *Emulator) ToggleBackgroundTable() {
	ctrl, _ := e.vram.control()
	e.vram.setControl(ctrl ^ ctrlBackground)
}

// ToggleTallSprites switches between 8x8 and 8x16 sprites
func (e *Emulator) ToggleTallSprites() {
	ctrl, _ := e.vram.control()
	e.vram.setControl(ctrl ^ ctrlTallSprites)
}

// ToggleGrayscale flips the grayscale bit of the mask register
func (e *Emulator) ToggleGrayscale() {
	_, mask := e.vram.control()
	e.vram.setMask(mask ^ maskGrayscale)
}

// NextCHRBank selects the next 8KB CHR bank through the mapper register.
// Cartridges without CHR banking ignore the write.
func (e *Emulator) NextCHRBank() {
	banks := e.cart.CHRBanks()
	if banks < 2 {
		return
	}
	e.chrBank = (e.chrBank + 1) % banks
	e.cart.WritePRG(0x8000, uint8(e.chrBank))
}

// CycleMirroring steps through the nametable arrangements
func (e *Emulator) CycleMirroring() memory.MirrorMode {
	next := (e.memory.Mirroring() + 1) % (memory.MirrorFourScreen + 1)
	e.memory.SetMirroring(next)
	return next
}

// SetPalettePreset loads a built-in palette into palette RAM
func (e *Emulator) SetPalettePreset(index int) {
	e.preset = ((index % len(palettePresets)) + len(palettePresets)) % len(palettePresets)
	e.vram.loadPalette(palettePresets[e.preset])
	e.applyScroll()
}

// NextPalettePreset rotates to the following preset
func (e *Emulator) NextPalettePreset() string {
	e.SetPalettePreset(e.preset + 1)
	return palettePresets[e.preset].Name
}

// Close releases the sheets held in the store. The emulator must not be
// updated afterwards.
func (e *Emulator) Close() {
	e.pipeline.Sheets().Close()
}

// SetColorFilter replaces the palette color filter. Sheets using changed
// colors regenerate on the next frame.
func (e *Emulator) SetColorFilter(filter snapshot.ColorFilter) {
	e.extractor.SetColorFilter(filter)
}

// Pipeline returns the frame pipeline
func (e *Emulator) Pipeline() *pipeline.Pipeline {
	return e.pipeline
}

// PPU returns the picture processor
func (e *Emulator) PPU() *ppu.PPU {
	return e.ppu
}

// Memory returns the PPU address space
func (e *Emulator) Memory() *memory.PPUMemory {
	return e.memory
}

// Cartridge returns the loaded cartridge
func (e *Emulator) Cartridge() *cartridge.Cartridge {
	return e.cart
}

// CHRBank returns the last bank selected with NextCHRBank
func (e *Emulator) CHRBank() int {
	return e.chrBank
}

// GetStats returns the counters gathered so far
func (e *Emulator) GetStats() EmulatorStats {
	return EmulatorStats{
		FrameCount:        e.pipeline.Frames(),
		SheetsRegenerated: e.sheetsRegenerated,
		CellsRepainted:    e.cellsRepainted,
		LastSheets:        e.pipeline.Sheets().UpdatedSet().Count(),
		LastRepaints:      e.pipeline.Background().Repaints(),
		SpritesShown:      e.pipeline.Sprites().Shown(),
		CoreFrames:        e.coreFrames,
		LastCoreTime:      e.lastCoreTime,
		LastFrameTime:     e.lastFrameTime,
		AverageFrameTime:  e.frameTimes.GetAverage(),
		FrameJitter:       e.frameTimes.GetJitter(),
	}
}

// GetUptime returns the time since the emulator was created
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.startTime)
}

// Status returns the one-line summary shown in the overlay
func (e *Emulator) Status() string {
	stats := e.GetStats()
	bg, spr := e.pipeline.Sheets().Banks()
	ctrl, mask := e.vram.control()

	var b strings.Builder
	fmt.Fprintf(&b, "F%d chr%d bg%d spr%d %s", stats.FrameCount, e.chrBank, bg, spr, cartridge.MirrorMode(e.memory.Mirroring()))
	fmt.Fprintf(&b, " | sheets %d cells %d sprites %d", stats.LastSheets, stats.LastRepaints, stats.SpritesShown)
	fmt.Fprintf(&b, " | scroll %d,%d %s", e.scrollX, e.scrollY, palettePresets[e.preset].Name)
	if ctrl&ctrlTallSprites != 0 {
		b.WriteString(" 8x16")
	}
	if mask&maskGrayscale != 0 {
		b.WriteString(" gray")
	}
	if e.pipeline.Paused() {
		b.WriteString(" | PAUSED")
	}
	return b.String()
}

// CircularTimingBuffer efficiently stores timing measurements
type CircularTimingBuffer struct {
	buffer   []time.Duration
	index    int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularTimingBuffer creates a new circular timing buffer
func NewCircularTimingBuffer(capacity int) *CircularTimingBuffer {
	return &CircularTimingBuffer{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add adds a timing measurement to the buffer
func (ctb *CircularTimingBuffer) Add(duration time.Duration) {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()

	ctb.buffer[ctb.index] = duration
	ctb.index = (ctb.index + 1) % ctb.capacity

	if ctb.size < ctb.capacity {
		ctb.size++
	}
}

// GetAverage calculates the average of stored durations
func (ctb *CircularTimingBuffer) GetAverage() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()
	return ctb.average()
}

func (ctb *CircularTimingBuffer) average() time.Duration {
	if ctb.size == 0 {
		return 0
	}

	var total time.Duration
	for i := 0; i < ctb.size; i++ {
		total += ctb.buffer[i]
	}
	return total / time.Duration(ctb.size)
}

// GetJitter returns the largest deviation from the average
func (ctb *CircularTimingBuffer) GetJitter() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()

	if ctb.size < 2 {
		return 0
	}

	avg := ctb.average()
	var jitter time.Duration
	for i := 0; i < ctb.size; i++ {
		diff := ctb.buffer[i] - avg
		if diff < 0 {
			diff = -diff
		}
		if diff > jitter {
			jitter = diff
		}
	}
	return jitter
}

// Len returns the number of stored measurements
func (ctb *CircularTimingBuffer) Len() int {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()
	return ctb.size
}

// Reset clears the buffer
func (ctb *CircularTimingBuffer) Reset() {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()
	ctb.index = 0
	ctb.size = 0
}
