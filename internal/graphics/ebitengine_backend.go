//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"nesview/internal/palette"
	"nesview/internal/snapshot"
	"nesview/internal/sprite"
	"nesview/internal/tilecache"
)

const overlayHeight = 16

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the viewer.
//
// Background quadrants are retained layers. Present repaints only the cells
// the diff engine reported; Draw composes layers and sprites every frame.
type EbitengineGame struct {
	window       *EbitengineWindow
	store        *EbitenSheetStore
	layers       [snapshot.NametableCount]*ebiten.Image
	frameImage   *ebiten.Image
	scene        *Scene
	windowWidth  int
	windowHeight int
	showOverlay  bool
	drawCount    int
}

var keyMappings = map[ebiten.Key]Key{
	ebiten.KeyEscape:     KeyEscape,
	ebiten.KeySpace:      KeySpace,
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyB:          KeyB,
	ebiten.KeyG:          KeyG,
	ebiten.KeyM:          KeyM,
	ebiten.KeyN:          KeyN,
	ebiten.KeyO:          KeyO,
	ebiten.KeyP:          KeyP,
	ebiten.KeyS:          KeyS,
	ebiten.KeyT:          KeyT,
	ebiten.KeyF12:        KeyF12,
	ebiten.Key0:          Key0,
	ebiten.Key1:          Key1,
	ebiten.Key2:          Key2,
	ebiten.Key3:          Key3,
	ebiten.Key4:          Key4,
	ebiten.Key5:          Key5,
	ebiten.Key6:          Key6,
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		store:        NewEbitenSheetStore(),
		frameImage:   ebiten.NewImage(snapshot.ViewportWidth, snapshot.ViewportHeight),
		windowWidth:  width,
		windowHeight: height,
		showOverlay:  b.config.ShowOverlay,
	}
	for q := range game.layers {
		game.layers[q] = ebiten.NewImage(snapshot.ViewportWidth, snapshot.ViewportHeight)
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	ebiten.SetScreenFilterEnabled(b.config.Filter == "linear")

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns the events gathered since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// Sheets returns the GPU sheet store
func (w *EbitengineWindow) Sheets() tilecache.SheetStore {
	return w.game.store
}

// Present repaints the changed background cells into the retained layers
func (w *EbitengineWindow) Present(scene *Scene) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	w.game.repaint(scene)
	w.game.scene = scene
	return nil
}

// ToggleOverlay shows or hides the status line
func (w *EbitengineWindow) ToggleOverlay() {
	w.game.showOverlay = !w.game.showOverlay
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets the per-tick update function
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	g.processInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			log.Printf("[Ebitengine] Update error: %v", err)
		}
	}

	if !g.window.running {
		return ebiten.Termination
	}
	return nil
}

// repaint clears and redraws every changed cell of every quadrant. It
// returns the number of cells drawn.
func (g *EbitengineGame) repaint(scene *Scene) int {
	painted := 0
	bg := scene.Background
	for q, layer := range g.layers {
		changed := bg.Changed(q)
		if len(changed) == 0 {
			continue
		}
		quad := bg.Quadrant(q)
		for _, i := range changed {
			cell := &quad.Cells[i]
			x := (i % snapshot.CellColumns) * 8
			y := (i / snapshot.CellColumns) * 8

			dst := layer.SubImage(image.Rect(x, y, x+8, y+8)).(*ebiten.Image)
			dst.Clear()
			painted++

			sheet := g.store.Sheet(tilecache.SheetKey{Role: palette.Background, Bank: bg.Bank(), Group: int(cell.Group)})
			if sheet == nil {
				continue
			}
			src := sheet.SubImage(tilecache.TileRect(int(cell.Tile))).(*ebiten.Image)
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(x), float64(y))
			layer.DrawImage(src, op)
		}
	}
	return painted
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{A: 255})
	if g.scene == nil {
		return
	}

	g.compose(g.frameImage, g.scene)

	// Fit the viewport to the window, keeping the aspect ratio
	scaleX := float64(g.windowWidth) / snapshot.ViewportWidth
	scaleY := float64(g.windowHeight) / snapshot.ViewportHeight
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	offsetX := (float64(g.windowWidth) - snapshot.ViewportWidth*scale) / 2
	offsetY := (float64(g.windowHeight) - snapshot.ViewportHeight*scale) / 2

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)

	if g.showOverlay {
		ebitenutil.DrawRect(screen, 0, 0, float64(g.windowWidth), overlayHeight, color.RGBA{0, 0, 0, 180})
		text.Draw(screen, g.scene.Status, basicfont.Face7x13, 4, 12, color.White)
	}

	g.drawCount++
	if g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d scaled %.2fx", g.scene.Frame, scale)
	}
}

// compose draws backdrop, sprites and background layers into dst
func (g *EbitengineGame) compose(dst *ebiten.Image, scene *Scene) {
	dst.Fill(scene.Backdrop.RGBA8())

	if scene.Sprites.Visible() {
		g.drawSprites(dst, scene, sprite.Behind)
	}

	if bg := scene.Background; bg.Visible() {
		for q, layer := range g.layers {
			quad := bg.Quadrant(q)
			if quad.Physical < 0 {
				continue
			}
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(quad.X), float64(quad.Y))
			dst.DrawImage(layer, op)
		}
	}

	if scene.Sprites.Visible() {
		g.drawSprites(dst, scene, sprite.InFront)
	}
}

// drawSprites draws one depth band, lowest OAM index on top
func (g *EbitengineGame) drawSprites(dst *ebiten.Image, scene *Scene, depth sprite.Depth) {
	views := scene.Sprites.Views()
	for i := len(views) - 1; i >= 0; i-- {
		v := &views[i]
		if !v.Visible || v.Depth != depth {
			continue
		}
		sheet := g.store.Sheet(v.Sheet)
		if sheet == nil {
			continue
		}
		drawTile(dst, sheet, v.Top, v.X, v.Y, v.FlipH, v.FlipV)
		if v.Tall {
			drawTile(dst, sheet, v.Bottom, v.X, v.Y+8, v.FlipH, v.FlipV)
		}
	}
}

func drawTile(dst, sheet *ebiten.Image, ref sprite.TileRef, x, y int, flipH, flipV bool) {
	src := sheet.SubImage(tilecache.TileRect(int(ref.Index))).(*ebiten.Image)
	op := &ebiten.DrawImageOptions{}
	if flipH {
		op.GeoM.Scale(-1, 1)
		op.GeoM.Translate(8, 0)
	}
	if flipV {
		op.GeoM.Scale(1, -1)
		op.GeoM.Translate(0, 8)
	}
	op.GeoM.Translate(float64(x), float64(y))
	dst.DrawImage(src, op)
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// processInput turns key transitions into events
func (g *EbitengineGame) processInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.window.events = append(g.window.events, InputEvent{
			Type:    InputEventTypeQuit,
			Pressed: true,
		})
	}

	for ebitenKey, key := range keyMappings {
		switch {
		case inpututil.IsKeyJustPressed(ebitenKey):
			g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: true})
		case inpututil.IsKeyJustReleased(ebitenKey):
			g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false})
		}
	}
}
