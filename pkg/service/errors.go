package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrServiceUnavailable is returned when no provider is active.
	ErrServiceUnavailable = errors.New("LLM service not available")
	// ErrProviderUnavailable is returned when switching to a provider that
	// is unknown or has no credential configured.
	ErrProviderUnavailable = errors.New("provider not available")
	// ErrJobNotFound is returned for unknown or expired job IDs.
	ErrJobNotFound = errors.New("job not found")

	ErrNoQuestion   = fmt.Errorf("%w: no question provided", ErrInvalidInput)
	ErrEmptyWord    = fmt.Errorf("%w: no word provided", ErrInvalidInput)
	ErrEmptyText    = fmt.Errorf("%w: no text provided", ErrInvalidInput)
	ErrInvalidVoice = fmt.Errorf("%w: invalid voice", ErrInvalidInput)
	ErrInvalidSpeed = fmt.Errorf("%w: speed must be between 0.25 and 4.0", ErrInvalidInput)
)
