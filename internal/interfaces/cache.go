package interfaces

import (
	"context"

	"qrgen/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache maps request fingerprints to encoded images.
// Implemented by the in-process LRU (default) and Redis (shared).
//
// Implementations are safe for concurrent use. Get never returns an entry
// older than the configured TTL. Get returns a slice the caller owns; Set
// copies or serializes value before returning.
type Cache interface {
	Get(ctx context.Context, fp models.Fingerprint) ([]byte, bool, error)
	Set(ctx context.Context, fp models.Fingerprint, value []byte) error
}
