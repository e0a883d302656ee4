package renderer

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/linuxmatters/syntunes/internal/config"
	"github.com/linuxmatters/syntunes/internal/effects"
)

// Thumbnail returns the square thumbnail raster: the cover padded onto a
// white square of the given size and thresholded at rest.
func Thumbnail(cover image.Image, size int, cfg config.Effects) *image.RGBA {
	img := PadSquare(cover, size)
	effects.Threshold(img, 0, cfg)
	return img
}

// GenerateThumbnail writes the thumbnail for cover to outputPath as JPEG.
func GenerateThumbnail(outputPath string, cover image.Image, size, quality int, cfg config.Effects) error {
	img := Thumbnail(cover, size, cfg)
	if err := saveThumbnail(img, outputPath, quality); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}

// saveThumbnail writes via a temporary file in the same directory so a
// failed encode never leaves a truncated JPEG behind.
func saveThumbnail(img *image.RGBA, outputPath string, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
