package complaint

import (
	"errors"
	"fmt"
)

// Error taxonomy of the submission and tracking flows. Handlers classify
// with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrUpload     = errors.New("attachment upload failed")
	ErrIdentity   = errors.New("identity lookup failed")
	ErrInsert     = errors.New("complaint insert failed")
	ErrQuery      = errors.New("complaint query failed")
	ErrNotFound   = errors.New("complaint not found")

	// ErrSubmissionInFlight rejects a second submit while one is running.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	ErrEmptyTrackingCode = fmt.Errorf("%w: tracking code is empty", ErrValidation)
	ErrCodesExhausted    = errors.New("no free tracking code")
)
