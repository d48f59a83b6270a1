package proposal

import (
	"strings"

	"github.com/playforge/catalog/src/api/types"
)

// Event is a reviewer or editor action against a proposal.
type Event string

const (
	EventApprove     Event = "approve"
	EventDecline     Event = "decline"
	EventRevise      Event = "revise"
	EventAcknowledge Event = "acknowledge"
	EventDelete      Event = "delete"
)

// Actor identifies who is attempting the event.
type Actor struct {
	ID    string
	Admin bool
}

// Record is the slice of proposal state the engine needs. It keeps the
// engine free of storage concerns so transitions stay testable in memory.
type Record struct {
	Status        string
	EditorID      string
	FeedbackAcked bool
}

// StatusDeleted marks a record removal rather than a status write.
const StatusDeleted = ""

// Next validates one transition and returns the status the proposal moves
// to. It performs no I/O; callers persist the result under their own
// transaction. For EventRevise the returned status applies to the source
// proposal (the new PENDING successor is the caller's to create), and the
// "at most one successor" rule is storage-level and enforced there.
func Next(rec Record, ev Event, actor Actor, feedback string) (string, error) {
	switch ev {
	case EventApprove:
		if !actor.Admin {
			return "", ErrForbidden
		}
		if rec.Status != types.ProposalPending {
			return "", &InvalidTransitionError{Status: rec.Status, Event: ev}
		}
		return types.ProposalApproved, nil

	case EventDecline:
		if !actor.Admin {
			return "", ErrForbidden
		}
		if rec.Status != types.ProposalPending {
			return "", &InvalidTransitionError{Status: rec.Status, Event: ev}
		}
		if strings.TrimSpace(feedback) == "" {
			return "", ErrMissingFeedback
		}
		return types.ProposalDeclined, nil

	case EventRevise:
		if actor.ID != rec.EditorID {
			return "", ErrNotOwner
		}
		if rec.Status != types.ProposalDeclined {
			return "", &InvalidTransitionError{Status: rec.Status, Event: ev}
		}
		return types.ProposalSuperseded, nil

	case EventAcknowledge:
		if actor.ID != rec.EditorID {
			return "", ErrNotOwner
		}
		if rec.Status != types.ProposalDeclined {
			return "", &InvalidTransitionError{Status: rec.Status, Event: ev}
		}
		if rec.FeedbackAcked {
			return "", ErrAlreadyAcknowledged
		}
		return types.ProposalDeclined, nil

	case EventDelete:
		if actor.Admin {
			return StatusDeleted, nil
		}
		if actor.ID != rec.EditorID {
			return "", ErrForbidden
		}
		if rec.Status != types.ProposalPending && rec.Status != types.ProposalDeclined {
			return "", ErrForbidden
		}
		return StatusDeleted, nil
	}

	return "", &InvalidTransitionError{Status: rec.Status, Event: ev}
}
