package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxWidth caps every pixel dimension a caller may ask for. It keeps the
// CPU-bound stages bounded in time and memory.
const MaxWidth = 4096

// ErrInvalidRequest wraps every validation failure returned by NewRenderRequest.
var ErrInvalidRequest = errors.New("invalid render request")

// LogoSpec describes the logo to composite on top of the symbol.
type LogoSpec struct {
	SourceURL   string `json:"source_url" validate:"required,utf8,url"`
	TargetWidth uint32 `json:"target_width" validate:"gt=0,lte=4096"`
	// TargetHeight is nil when the height should follow the logo's aspect ratio.
	TargetHeight *uint32 `json:"target_height" validate:"omitnil,gt=0,lte=4096"`
}

// RenderRequest is a validated request to render one QR code.
// Values are passed by copy and never mutated after NewRenderRequest.
type RenderRequest struct {
	Text        string    `json:"text" validate:"required,utf8"`
	TargetWidth uint32    `json:"target_width" validate:"gt=0,lte=4096"`
	Logo        *LogoSpec `json:"logo"`
}

var validate = newValidator()

// newValidator adds the utf8 tag: text is encoded and fingerprinted as bytes,
// so malformed sequences are rejected rather than silently replaced.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	}); err != nil {
		panic("models: register utf8 validation: " + err.Error())
	}
	return v
}

// NewRenderRequest validates its inputs and returns an immutable request.
// logo may be nil.
func NewRenderRequest(text string, width uint32, logo *LogoSpec) (RenderRequest, error) {
	req := RenderRequest{Text: text, TargetWidth: width}
	if logo != nil {
		spec := *logo
		if logo.TargetHeight != nil {
			h := *logo.TargetHeight
			spec.TargetHeight = &h
		}
		req.Logo = &spec
	}

	if err := req.Validate(); err != nil {
		return RenderRequest{}, err
	}
	return req, nil
}

// Validate checks field constraints and reports the offending fields.
func (r RenderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// HasLogo reports whether a logo should be composited.
func (r RenderRequest) HasLogo() bool {
	return r.Logo != nil
}
