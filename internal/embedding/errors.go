package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller-supplied texts that violate the
	// non-empty, non-blank rules. It is always returned before any network call.
	ErrInvalidInput = errors.New("embedding: invalid input")

	// ErrInvalidConfiguration marks construction-time misconfiguration.
	ErrInvalidConfiguration = errors.New("embedding: invalid configuration")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// ProviderError reports any provider-side or transport failure.
// Message is human readable and never contains credentials.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsInvalidInput reports whether err was caused by invalid caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInvalidConfiguration reports whether err was caused by bad settings.
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// AsProviderError extracts a *ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsTimeout reports whether err is a provider request that timed out.
func IsTimeout(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Timeout
}
