// Package errs defines the error kinds shared by the analysis pipeline.
//
// Each kind is a sentinel wrapped with github.com/pkg/errors so callers
// can match with errors.Is while still getting a contextual message.
package errs

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	// ErrValidation marks malformed or unknown-identifier input,
	// e.g. a link referencing a station that does not exist.
	ErrValidation = stderrors.New("validation error")
	// ErrConfiguration marks structurally empty or contradictory
	// configuration, e.g. a zone left without any candidate edge.
	ErrConfiguration = stderrors.New("configuration error")
	// ErrSignature marks an invalid time-function registration.
	ErrSignature = stderrors.New("signature error")
	// ErrRange marks a time function returning values outside the
	// non-negative finite domain on representative inputs.
	ErrRange = stderrors.New("range error")
	// ErrInvariant marks upstream corruption reaching the optimizer,
	// e.g. a negative edge weight.
	ErrInvariant = stderrors.New("invariant error")
	// ErrNotFound marks a lookup of an unregistered time function.
	ErrNotFound = stderrors.New("not found")
	// ErrNotImplemented marks a code path that must fail loudly
	// instead of returning partial data.
	ErrNotImplemented = stderrors.New("not implemented")
)

func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

func Configurationf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

func Signaturef(format string, args ...any) error {
	return errors.Wrapf(ErrSignature, format, args...)
}

func Rangef(format string, args ...any) error {
	return errors.Wrapf(ErrRange, format, args...)
}

func Invariantf(format string, args ...any) error {
	return errors.Wrapf(ErrInvariant, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func NotImplementedf(format string, args ...any) error {
	return errors.Wrapf(ErrNotImplemented, format, args...)
}
