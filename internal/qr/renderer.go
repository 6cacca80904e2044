// Package qr renders text into a square QR code raster of an exact pixel width.
package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"

	"qrgen/internal/models"
)

var (
	// ErrInvalidDimension is returned for a zero or oversized target width.
	ErrInvalidDimension = errors.New("qr: invalid target width")
	// ErrEmptyPayload is returned when there is nothing to encode.
	ErrEmptyPayload = errors.New("qr: empty payload")
	// ErrPayloadTooLarge is returned when the text does not fit the largest
	// symbol version at the configured recovery level.
	ErrPayloadTooLarge = errors.New("qr: payload exceeds symbol capacity")
)

var black = image.NewUniform(color.Black)

// ParseRecoveryLevel maps a config name to a go-qrcode recovery level.
func ParseRecoveryLevel(name string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low", "l":
		return qrcode.Low, nil
	case "", "medium", "m":
		return qrcode.Medium, nil
	case "high", "q":
		return qrcode.High, nil
	case "highest", "h":
		return qrcode.Highest, nil
	default:
		return qrcode.Medium, fmt.Errorf("qr: unknown recovery level %q", name)
	}
}

// Renderer encodes text at one fixed recovery level.
type Renderer struct {
	level qrcode.RecoveryLevel
}

// NewRenderer returns a Renderer using level for every symbol.
func NewRenderer(level qrcode.RecoveryLevel) *Renderer {
	return &Renderer{level: level}
}

// Render returns a width×width raster holding the symbol for text.
//
// Modules are scaled by the largest integer factor that fits the width, and the
// leftover border is the quiet zone. When width is smaller than the module count
// the symbol is drawn at scale 1 and clipped.
func (r *Renderer) Render(text string, width uint32) (*image.NRGBA, error) {
	if width == 0 || width > models.MaxWidth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, width)
	}
	if text == "" {
		return nil, ErrEmptyPayload
	}

	code, err := qrcode.New(text, r.level)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %v", ErrPayloadTooLarge, len(text), err)
	}
	code.DisableBorder = true

	bitmap := code.Bitmap()
	symbol := drawSymbol(bitmap, Scale(int(width), len(bitmap)))

	size := int(width)
	canvas := imaging.New(size, size, color.White)
	off := (size - symbol.Bounds().Dx()) / 2
	dst := image.Rect(off, off, off+symbol.Bounds().Dx(), off+symbol.Bounds().Dy())
	draw.Draw(canvas, dst, symbol, image.Point{}, draw.Src)

	return canvas, nil
}

// Scale is the integer pixel size of one module: max(1, width/modules).
func Scale(width, modules int) int {
	if modules <= 0 {
		return 1
	}
	return max(1, width/modules)
}

// drawSymbol paints bitmap (true = dark module) at scale with no quiet zone.
func drawSymbol(bitmap [][]bool, scale int) *image.NRGBA {
	n := len(bitmap)
	symbol := imaging.New(n*scale, n*scale, color.White)

	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			cell := image.Rect(x*scale, y*scale, (x+1)*scale, (y+1)*scale)
			draw.Draw(symbol, cell, black, image.Point{}, draw.Src)
		}
	}
	return symbol
}
