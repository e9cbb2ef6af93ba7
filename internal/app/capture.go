// Package app provides frame capture for the viewer.
package app

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"nesview/internal/cartridge"
	"nesview/internal/graphics"
	"nesview/internal/snapshot"
	"nesview/internal/sprite"
)

const reportVersion = "1.0"

// CaptureManager writes frame captures: the composed frame, the tile
// sheets and a JSON report of the state that produced them.
type CaptureManager struct {
	directory   string
	captures    int
	frame       *image.RGBA
	initialized bool
}

// FrameReport describes one captured frame
type FrameReport struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	ROMPath   string    `json:"rom_path"`
	Frame     uint64    `json:"frame"`

	Mapper         uint8                  `json:"mapper"`
	Battery        bool                   `json:"battery"`
	Mirroring      string                 `json:"mirroring"`
	CHRBank        int                    `json:"chr_bank"`
	BackgroundBank int                    `json:"background_bank"`
	SpriteBank     int                    `json:"sprite_bank"`
	ScrollX        int                    `json:"scroll_x"`
	ScrollY        int                    `json:"scroll_y"`
	BankSignature  snapshot.BankSignature `json:"bank_signature"`

	BackgroundPalette []string `json:"background_palette"`
	SpritePalette     []string `json:"sprite_palette"`

	SheetsRegenerated int            `json:"sheets_regenerated"`
	CellsRepainted    int            `json:"cells_repainted"`
	Sprites           []SpriteReport `json:"sprites"`

	Files []string `json:"files"`
}

// SpriteReport is one visible sprite in a FrameReport
type SpriteReport struct {
	Index   int    `json:"index"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Sheet   string `json:"sheet"`
	Tile    uint8  `json:"tile"`
	FlipH   bool   `json:"flip_h,omitempty"`
	FlipV   bool   `json:"flip_v,omitempty"`
	Behind  bool   `json:"behind,omitempty"`
	Tall    bool   `json:"tall,omitempty"`
	Refresh bool   `json:"sheet_refreshed,omitempty"`
}

// NewCaptureManager creates a manager writing into directory
func NewCaptureManager(directory string) *CaptureManager {
	return &CaptureManager{
		directory:   directory,
		frame:       image.NewRGBA(image.Rect(0, 0, snapshot.ViewportWidth, snapshot.ViewportHeight)),
		initialized: true,
	}
}

// Capture writes the scene and its report. It returns the report path.
func (cm *CaptureManager) Capture(scene *graphics.Scene, e *Emulator, romPath string) (string, error) {
	if !cm.initialized {
		return "", fmt.Errorf("capture manager not initialized")
	}
	s := e.Pipeline().Snapshot()
	if s == nil {
		return "", fmt.Errorf("no frame processed yet")
	}

	graphics.ComposeFrame(cm.frame, scene)
	files, err := graphics.DumpScene(cm.directory, scene, cm.frame)
	if err != nil {
		return "", fmt.Errorf("failed to write capture: %w", err)
	}

	report := cm.buildReport(scene, e, s, romPath)
	report.Files = files

	path := filepath.Join(cm.directory, fmt.Sprintf("report_%06d.json", scene.Frame))
	if err := cm.saveReport(report, path); err != nil {
		return "", err
	}

	cm.captures++
	return path, nil
}

func (cm *CaptureManager) buildReport(scene *graphics.Scene, e *Emulator, s *snapshot.Snapshot, romPath string) *FrameReport {
	bg, spr := scene.Sheets.Banks()
	x, y := e.ScrollPosition()

	report := &FrameReport{
		Version:           reportVersion,
		Timestamp:         time.Now(),
		ROMPath:           romPath,
		Frame:             scene.Frame,
		Mapper:            e.Cartridge().MapperID(),
		Battery:           e.Cartridge().HasBattery(),
		Mirroring:         cartridge.MirrorMode(e.Memory().Mirroring()).String(),
		CHRBank:           e.CHRBank(),
		BackgroundBank:    bg,
		SpriteBank:        spr,
		ScrollX:           x,
		ScrollY:           y,
		BankSignature:     s.BankSignature,
		BackgroundPalette: hexColors(s.BackgroundPalette[:]),
		SpritePalette:     hexColors(s.SpritePalette[:]),
		SheetsRegenerated: scene.Sheets.UpdatedSet().Count(),
		CellsRepainted:    scene.Background.Repaints(),
	}

	for i, v := range scene.Sprites.Views() {
		if !v.Visible {
			continue
		}
		report.Sprites = append(report.Sprites, SpriteReport{
			Index:   i,
			X:       v.X,
			Y:       v.Y,
			Sheet:   v.Sheet.String(),
			Tile:    v.Top.Index,
			FlipH:   v.FlipH,
			FlipV:   v.FlipV,
			Behind:  v.Depth == sprite.Behind,
			Tall:    v.Tall,
			Refresh: v.SheetRefreshed,
		})
	}
	return report
}

func hexColors(packed []uint32) []string {
	out := make([]string, len(packed))
	for i, c := range packed {
		out[i] = fmt.Sprintf("#%06X", c&0xFFFFFF)
	}
	return out
}

// saveReport saves a report to a file
func (cm *CaptureManager) saveReport(report *FrameReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by Capture
func (cm *CaptureManager) LoadReport(path string) (*FrameReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report FrameReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	if report.Version == "" {
		return nil, fmt.Errorf("missing version information")
	}
	return &report, nil
}

// Count returns the number of captures written
func (cm *CaptureManager) Count() int {
	return cm.captures
}

// GetDirectory returns the capture directory
func (cm *CaptureManager) GetDirectory() string {
	return cm.directory
}

// Cleanup releases capture manager resources
func (cm *CaptureManager) Cleanup() error {
	cm.initialized = false
	return nil
}
