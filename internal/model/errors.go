package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrMissingRequiredField is the only fatal analysis error.
	ErrMissingRequiredField = eris.New("missing required field")

	// ErrMarketDataUnavailable is recovered locally by substituting sector defaults.
	ErrMarketDataUnavailable = eris.New("market data unavailable")

	// ErrNarrativeUnavailable is recovered locally by substituting a templated narrative.
	ErrNarrativeUnavailable = eris.New("narrative unavailable")
)

// MissingFieldError names the mandatory field that was absent or non-positive.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField.Error(), e.Field)
}

// Is lets errors.Is match ErrMissingRequiredField.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}
