// Package graphics provides an abstraction layer for different presentation backends
package graphics

import (
	"nesview/internal/background"
	"nesview/internal/palette"
	"nesview/internal/sprite"
	"nesview/internal/tilecache"
)

// Backend represents a presentation backend (Ebitengine, headless)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a window for presentation
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running in headless mode
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window represents a presentation surface
type Window interface {
	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// PollEvents processes input events
	PollEvents() []InputEvent

	// Sheets returns the store the tile-sheet cache writes into.
	// Handles published to it are only meaningful to this window.
	Sheets() tilecache.SheetStore

	// Present consumes one processed frame. It must be called after every
	// pipeline pass so that no changed-cell list is missed.
	Present(scene *Scene) error

	// Cleanup releases window resources
	Cleanup() error
}

// Scene is the presentation view of one processed frame
type Scene struct {
	Frame      uint64
	Backdrop   palette.Color
	Sheets     *tilecache.Cache
	Background *background.Engine
	Sprites    *sprite.Engine
	Status     string
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	// Rendering configuration
	Filter string // "nearest", "linear"

	// Headless output
	OutputDir  string
	DumpFrames []uint64

	// Backend-specific options
	Headless    bool
	ShowOverlay bool
	Debug       bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Key     Key
	Pressed bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeQuit
)

// Key represents keyboard keys
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyB
	KeyG
	KeyM
	KeyN
	KeyO
	KeyP
	KeyS
	KeyT
	KeyF12
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
)

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	default:
		// Default to Ebitengine for GUI mode
		return NewEbitengineBackend(), nil
	}
}

// AsEbitengineWindow tries to cast a Window to EbitengineWindow
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	if ebitengineWindow, ok := window.(*EbitengineWindow); ok {
		return ebitengineWindow, true
	}
	return nil, false
}
