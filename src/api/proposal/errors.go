package proposal

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error kinds. Handlers map these to HTTP statuses; everything else
// surfaces as a 500 with a generic body so internals never leak.
var (
	ErrNotFound            = errors.New("proposal not found")
	ErrInvalidState        = errors.New("proposal is not in a valid state for this action")
	ErrForbidden           = errors.New("not permitted")
	ErrNotOwner            = errors.New("not the proposal owner")
	ErrMissingFeedback     = errors.New("feedback is required")
	ErrTargetMissing       = errors.New("target game no longer exists")
	ErrSuccessorExists     = errors.New("proposal already has a revision")
	ErrAlreadyAcknowledged = errors.New("feedback already acknowledged")
)

// InvalidTransitionError names the status that blocked a transition.
type InvalidTransitionError struct {
	Status string
	Event  Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s proposal", e.Event, e.Status)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidState }

// HTTPStatus maps an error to the response code the API layer should use.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTargetMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrMissingFeedback),
		errors.Is(err, ErrSuccessorExists),
		errors.Is(err, ErrAlreadyAcknowledged):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
