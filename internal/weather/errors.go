package weather

import "errors"

// Provider errors. Callers treat all of them as a failed rainfall lookup.
var (
	// ErrRequestFailed is returned for transport errors, timeouts and
	// non-2xx responses.
	ErrRequestFailed = errors.New("weather: request failed")

	// ErrMalformedResponse is returned when the response cannot be decoded
	// or carries impossible values.
	ErrMalformedResponse = errors.New("weather: malformed response")

	// ErrCircuitOpen is returned without contacting the provider while the
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("weather: circuit open")

	// ErrMissingAPIKey is returned by NewOpenWeather when no key is configured.
	ErrMissingAPIKey = errors.New("weather: missing API key")
)
