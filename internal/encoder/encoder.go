// Package encoder serializes rasters into the service's single output format.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"
)

// ErrEncodeFailure is returned when the raster cannot be serialized.
var ErrEncodeFailure = errors.New("encoder: encode failed")

// Format names an output container.
type Format string

const FormatWebP Format = "webp"

var mimeTypes = map[Format]string{
	FormatWebP: "image/webp",
}

// MimeType returns the media type for f, or application/octet-stream for an
// unknown format.
func (f Format) MimeType() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return "application/octet-stream"
}

// Extension is the file extension used in Content-Disposition.
func (f Format) Extension() string {
	return "." + string(f)
}

// Encoder writes lossless WebP.
type Encoder struct {
	format Format
}

func NewEncoder() *Encoder {
	return &Encoder{format: FormatWebP}
}

func (e *Encoder) Format() Format { return e.format }

// MimeType is the media type of everything Encode returns.
func (e *Encoder) MimeType() string { return e.format.MimeType() }

// Encode serializes img and returns the bytes with their media type.
func (e *Encoder) Encode(img image.Image) ([]byte, string, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: empty raster", ErrEncodeFailure)
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, "", fmt.Errorf("%w: webp: %v", ErrEncodeFailure, err)
	}
	return buf.Bytes(), e.MimeType(), nil
}
