package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// PreviewConfig holds configuration for the video preview
type PreviewConfig struct {
	Width  int // Width in terminal cells
	Height int // Height in terminal cells
}

// DefaultPreviewConfig returns a sensible default preview size
// Using 64x18 (close to 16:9 once the 1:2 cell aspect is accounted for)
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:  64,
		Height: 18,
	}
}

// DownsampleFrame averages each cell-sized region of frame into one colour.
func DownsampleFrame(frame *image.RGBA, config PreviewConfig) [][]color.RGBA {
	bounds := frame.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	cellWidth := max(srcWidth/config.Width, 1)
	cellHeight := max(srcHeight/config.Height, 1)

	preview := make([][]color.RGBA, config.Height)
	for row := 0; row < config.Height; row++ {
		preview[row] = make([]color.RGBA, config.Width)
		for col := 0; col < config.Width; col++ {
			srcX := col * cellWidth
			srcY := row * cellHeight

			var sumR, sumG, sumB uint32
			pixelCount := uint32(0)

			for y := srcY; y < srcY+cellHeight && y < srcHeight; y++ {
				off := frame.PixOffset(bounds.Min.X+srcX, bounds.Min.Y+y)
				for x := srcX; x < srcX+cellWidth && x < srcWidth; x++ {
					sumR += uint32(frame.Pix[off])
					sumG += uint32(frame.Pix[off+1])
					sumB += uint32(frame.Pix[off+2])
					off += 4
					pixelCount++
				}
			}

			if pixelCount > 0 {
				preview[row][col] = color.RGBA{
					R: uint8(sumR / pixelCount),
					G: uint8(sumG / pixelCount),
					B: uint8(sumB / pixelCount),
					A: 255,
				}
			}
		}
	}

	return preview
}

// RenderPreview draws the preview grid with ANSI 24-bit background colours.
// Frames are black and white, so runs of equal colour share one escape.
func RenderPreview(preview [][]color.RGBA) string {
	if len(preview) == 0 {
		return ""
	}

	var b strings.Builder
	border := strings.Repeat("─", len(preview[0]))

	b.WriteString("  Video Preview:\n")
	b.WriteString("  ┌" + border + "┐\n")

	for _, row := range preview {
		b.WriteString("  │")
		var last color.RGBA
		open := false
		for _, pixel := range row {
			if !open || pixel != last {
				fmt.Fprintf(&b, "\x1b[48;2;%d;%d;%dm", pixel.R, pixel.G, pixel.B)
				last = pixel
				open = true
			}
			b.WriteByte(' ')
		}
		b.WriteString("\x1b[0m│\n")
	}

	b.WriteString("  └" + border + "┘\n")
	return b.String()
}
