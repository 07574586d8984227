package covidapi

import "errors"

// Failure classes for upstream calls. Errors returned by Client wrap exactly
// one of these; test with errors.Is.
var (
	// ErrTransport means the request never produced a response
	// (DNS, connection, timeout, cancellation).
	ErrTransport = errors.New("upstream request failed")

	// ErrStatus means the upstream answered with a non-2xx status.
	ErrStatus = errors.New("upstream returned an error status")

	// ErrMalformed means the body was not the expected JSON shape.
	ErrMalformed = errors.New("upstream response is malformed")
)

// Describe returns a short, user-facing sentence for an upstream failure.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return "The statistics service could not be reached."
	case errors.Is(err, ErrStatus):
		return "The statistics service returned an error."
	case errors.Is(err, ErrMalformed):
		return "The statistics service sent data we could not read."
	default:
		return "Loading statistics failed."
	}
}
