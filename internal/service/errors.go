package service

import (
	"errors"
	"fmt"

	"github.com/prospecta/leads-api/internal/filter"
	"github.com/prospecta/leads-api/internal/pipeline"
	"gorm.io/gorm"
)

// Common service errors. Handlers map them to status codes with errors.Is.
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidStage is returned for an unknown pipeline stage
	ErrInvalidStage = errors.New("invalid pipeline stage")

	// ErrStageConflict is returned when a card moved since the client read it
	ErrStageConflict = errors.New("pipeline stage conflict")

	// ErrInvalidTransition is returned when the campaign state machine forbids a change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSearchUnavailable is returned when neither the store nor the webhook can serve a search
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrUpstream is returned when an external service fails
	ErrUpstream = errors.New("upstream service failed")
)

// translate maps repository and package errors onto the service sentinels,
// keeping the original error in the chain.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, pipeline.ErrCardNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, pipeline.ErrInvalidStage):
		return fmt.Errorf("%w: %v", ErrInvalidStage, err)
	case errors.Is(err, pipeline.ErrStageConflict):
		return fmt.Errorf("%w: %v", ErrStageConflict, err)
	case errors.Is(err, filter.ErrInvalidFilter):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
