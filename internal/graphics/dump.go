package graphics

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"nesview/internal/tilecache"
)

// DumpScene writes a composed frame and a contact sheet of the scene's
// twelve tile sheets into dir. It returns the paths written.
func DumpScene(dir string, scene *Scene, frame *image.RGBA) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	framePath := filepath.Join(dir, fmt.Sprintf("frame_%06d.png", scene.Frame))
	if err := savePNG(framePath, frame); err != nil {
		return nil, err
	}

	var sheets [tilecache.SheetCount]*image.RGBA
	bg, _ := scene.Sheets.Banks()
	for slot := range sheets {
		sheets[slot] = scene.Sheets.Image(tilecache.KeyForSlot(slot, bg))
	}
	sheetPath := filepath.Join(dir, fmt.Sprintf("sheets_%06d.png", scene.Frame))
	if err := savePNG(sheetPath, ContactSheet(sheets, 2)); err != nil {
		return nil, err
	}

	return []string{framePath, sheetPath}, nil
}

func savePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
