package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"qrgen/internal/models"
	"qrgen/internal/pipeline"
	"qrgen/pkg/logging/logging"

	"go.uber.org/zap"
)

// Generator produces an encoded image for a request.
type Generator interface {
	Generate(ctx context.Context, req models.RenderRequest) (*pipeline.Result, error)
}

var errTrailingData = errors.New("unexpected data after JSON body")

// QRCodeBody is the body of POST /api/generate-qrcode.
type QRCodeBody struct {
	Data  string `json:"data"`
	Width uint32 `json:"width"`
}

// QRCodeWithLogoBody is the body of POST /api/generate-qrcode-with-logo.
type QRCodeWithLogoBody struct {
	Data       string  `json:"data"`
	Width      uint32  `json:"width"`
	LogoURL    string  `json:"logoUrl"`
	LogoWidth  uint32  `json:"logoWidth"`
	LogoHeight *uint32 `json:"logoHeight"`
}

// QRCodeHandler serves the image generation endpoints.
type QRCodeHandler struct {
	gen Generator
}

func NewQRCodeHandler(gen Generator) *QRCodeHandler {
	return &QRCodeHandler{gen: gen}
}

// Generate handles POST /api/generate-qrcode.
func (h *QRCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body QRCodeBody
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := models.NewRenderRequest(body.Data, body.Width, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, req)
}

// GenerateWithLogo handles POST /api/generate-qrcode-with-logo.
func (h *QRCodeHandler) GenerateWithLogo(w http.ResponseWriter, r *http.Request) {
	var body QRCodeWithLogoBody
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := models.NewRenderRequest(body.Data, body.Width, &models.LogoSpec{
		SourceURL:    body.LogoURL,
		TargetWidth:  body.LogoWidth,
		TargetHeight: body.LogoHeight,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serve(w, r, req)
}

func (h *QRCodeHandler) serve(w http.ResponseWriter, r *http.Request, req models.RenderRequest) {
	res, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteImage(w, res)
}

func (h *QRCodeHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := logging.L(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("generate_failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("generate_rejected", zap.Int("status", status), zap.Error(err))
	}
	WriteError(w, status)
}

// decodeBody reads one JSON object into dst. It writes the error response
// itself and returns false if the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		// Exactly one value; anything but trailing whitespace is rejected.
		if _, terr := dec.Token(); !errors.Is(terr, io.EOF) {
			err = errors.Join(errTrailingData, terr)
		}
	}
	if err != nil {
		logger := logging.L(r.Context())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
			WriteError(w, http.StatusRequestEntityTooLarge)
			return false
		}
		logger.Warn("invalid request", zap.Error(err))
		WriteError(w, http.StatusBadRequest)
		return false
	}
	return true
}
