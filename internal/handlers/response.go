package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"qrgen/internal/encoder"
	"qrgen/internal/pipeline"
)

const (
	cacheControl       = "public, max-age=31536000"
	contentDisposition = `attachment; filename="qrcode.webp"`
)

func setImageHeaders(w http.ResponseWriter, mimeType string) {
	h := w.Header()
	h.Set("Cache-Control", cacheControl)
	h.Set("Content-Type", mimeType)
	h.Set("Content-Disposition", contentDisposition)
}

// WriteImage sends an encoded image with the download headers.
func WriteImage(w http.ResponseWriter, res *pipeline.Result) {
	mime := res.MimeType
	if mime == "" {
		mime = encoder.FormatWebP.MimeType()
	}
	setImageHeaders(w, mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	if res.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// WriteError sends status with an empty body. Headers match a successful
// response except for the text/plain content type.
func WriteError(w http.ResponseWriter, status int) {
	setImageHeaders(w, "text/plain")
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(status)
}

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case pipeline.KindRemoteUnavailable:
		return http.StatusNotFound
	case pipeline.KindDecodeFailure:
		return http.StatusUnprocessableEntity
	case pipeline.KindCanceled:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
