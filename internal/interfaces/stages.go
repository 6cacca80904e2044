package interfaces

import (
	"context"
	"image"

	"qrgen/internal/models"
)

//go:generate mockgen -package=mock -source=stages.go -destination=mock/stages.go

// Renderer turns text into a width×width opaque raster.
type Renderer interface {
	Render(text string, width uint32) (*image.NRGBA, error)
}

// LogoFetcher retrieves raw logo bytes from a remote URL.
type LogoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Composer overlays a decoded logo onto base, centered, and returns base.
type Composer interface {
	Compose(base *image.NRGBA, logo []byte, spec models.LogoSpec) (*image.NRGBA, error)
}

// Encoder serializes a raster and reports its mime type.
type Encoder interface {
	Encode(img image.Image) ([]byte, string, error)
	MimeType() string
}
