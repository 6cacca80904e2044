package pipeline

import (
	"context"
	"errors"
	"fmt"

	"qrgen/internal/compose"
	"qrgen/internal/logo"
	"qrgen/internal/models"
	"qrgen/internal/qr"
)

// Kind classifies a pipeline failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindPayloadTooLarge
	KindRemoteUnavailable
	KindDecodeFailure
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindDecodeFailure:
		return "decode_failure"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Stage names the step that failed. Also used as the metrics stage label.
type Stage string

const (
	StageValidate Stage = "validate"
	StageRender   Stage = "render"
	StageFetch    Stage = "fetch"
	StageCompose  Stage = "compose"
	StageEncode   Stage = "encode"
)

// Error is returned by Orchestrator.Generate for every failure.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, classifying raw errors the same way the
// pipeline does. nil is KindInternal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classify(err)
}

// wrap attaches stage and kind to err unless it is already a pipeline error.
func wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Kind: classify(err), Stage: stage, Err: err}
}

func classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, qr.ErrInvalidDimension),
		errors.Is(err, qr.ErrEmptyPayload),
		errors.Is(err, compose.ErrInvalidDimension):
		return KindInvalidInput
	case errors.Is(err, qr.ErrPayloadTooLarge):
		return KindPayloadTooLarge
	case errors.Is(err, logo.ErrUnreachable), errors.Is(err, logo.ErrNotFound):
		return KindRemoteUnavailable
	case errors.Is(err, logo.ErrDecodeFailure), errors.Is(err, compose.ErrDecodeFailure):
		return KindDecodeFailure
	default:
		return KindInternal
	}
}
