// Package compose resizes a logo and draws it centered on a base raster.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	// Decoders accepted for logos.
	_ "golang.org/x/image/webp"

	"qrgen/internal/models"
)

var (
	// ErrDecodeFailure is returned when the logo bytes are not a decodable image.
	ErrDecodeFailure = errors.New("compose: cannot decode logo")
	// ErrInvalidDimension is returned for a zero or oversized logo size.
	ErrInvalidDimension = errors.New("compose: invalid logo dimension")
)

// Composer overlays logos. The zero value is ready to use.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose decodes logo, resizes it per spec and draws it centered on base.
// base is modified in place and returned. Parts of the logo that fall outside
// base are clipped.
func (c *Composer) Compose(base *image.NRGBA, logo []byte, spec models.LogoSpec) (*image.NRGBA, error) {
	src, err := imaging.Decode(bytes.NewReader(logo))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecodeFailure)
	}

	w, h, err := TargetSize(srcW, srcH, spec)
	if err != nil {
		return nil, err
	}

	resized := imaging.Resize(src, w, h, imaging.NearestNeighbor)
	// Logos are flattened to opaque RGB before placement.
	flat := imaging.Overlay(imaging.New(w, h, color.White), resized, image.Pt(0, 0), 1.0)

	Place(base, flat)
	return base, nil
}

// TargetSize resolves the resized logo dimensions. A missing height follows
// the source aspect ratio, rounded, never below one pixel.
func TargetSize(srcW, srcH int, spec models.LogoSpec) (int, int, error) {
	if spec.TargetWidth == 0 || spec.TargetWidth > models.MaxWidth {
		return 0, 0, fmt.Errorf("%w: width %d", ErrInvalidDimension, spec.TargetWidth)
	}
	w := int(spec.TargetWidth)

	if spec.TargetHeight != nil {
		h := *spec.TargetHeight
		if h == 0 || h > models.MaxWidth {
			return 0, 0, fmt.Errorf("%w: height %d", ErrInvalidDimension, h)
		}
		return w, int(h), nil
	}

	h := int(math.Round(float64(srcH) / float64(srcW) * float64(w)))
	return w, min(max(1, h), models.MaxWidth), nil
}

// Offset returns the top-left point that centers a w×h overlay on a
// baseW×baseH raster. Integer division truncates toward zero, so an oversized
// overlay gets a negative offset.
func Offset(baseW, baseH, w, h int) image.Point {
	return image.Pt((baseW-w)/2, (baseH-h)/2)
}

// Place draws overlay onto base at the centered offset, clipping silently.
func Place(base *image.NRGBA, overlay image.Image) {
	b := base.Bounds()
	ob := overlay.Bounds()
	pt := Offset(b.Dx(), b.Dy(), ob.Dx(), ob.Dy()).Add(b.Min)
	dst := image.Rectangle{Min: pt, Max: pt.Add(ob.Size())}
	draw.Draw(base, dst, overlay, ob.Min, draw.Src)
}
