package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFeature        = errors.New("unknown feature")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrMissingCredential     = errors.New("missing credential")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNoProviderAvailable   = errors.New("no provider available")
	ErrMalformedResponse     = errors.New("malformed provider response")
	ErrUnsupportedFeature    = errors.New("feature not supported by provider")
	ErrProviderMisconfigured = errors.New("provider misconfigured")
)

// InvalidInputError explains why a feature payload was rejected.
type InvalidInputError struct {
	Feature Feature
	Reason  string
	Empty   bool
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s input: %s", e.Feature, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// ProviderError is the normalized error an adapter returns once it has classified a failure.
// Transport-specific error types never cross the adapter boundary; only this does.
type ProviderError struct {
	ProviderID string
	Kind       ErrorKind
	HTTPStatus int
	Code       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.ProviderID, e.Kind)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (http %d)", e.HTTPStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind of err, defaulting to ErrorKindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	var inputErr *InvalidInputError
	if errors.As(err, &inputErr) {
		return ErrorKindInvalidInput
	}
	if errors.Is(err, ErrMissingCredential) {
		return ErrorKindMissingCredential
	}
	return ErrorKindInternal
}

// ResultFromError converts a failed call into a tagged provider result.
func ResultFromError(providerID string, err error) ProviderResult {
	return Failed(providerID, KindOf(err), err)
}
