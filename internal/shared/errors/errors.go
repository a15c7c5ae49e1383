package errors

import "errors"

// Inspection error kinds. Every failure surfaced by the inspector matches
// exactly one of these through errors.Is.
var (
	// Input errors
	ErrInvalidURL = errors.New("invalid url")

	// Network identity errors
	ErrResolution          = errors.New("hostname did not resolve")
	ErrRegistryUnreachable = errors.New("no whois server answered")

	// Transport errors
	ErrConnection       = errors.New("connection failed")
	ErrTimeout          = errors.New("deadline exceeded")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrCanceled         = errors.New("inspection canceled")

	// TLS errors
	ErrNotSecure   = errors.New("target does not use https")
	ErrCertificate = errors.New("certificate error")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")
)

// Kinds lists the inspection error kinds in a stable order.
var Kinds = []error{
	ErrInvalidURL,
	ErrResolution,
	ErrRegistryUnreachable,
	ErrConnection,
	ErrTimeout,
	ErrTooManyRedirects,
	ErrCanceled,
	ErrNotSecure,
	ErrCertificate,
}

// KindOf returns the inspection kind carried by err, or nil when err does not
// wrap any of them.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range Kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
