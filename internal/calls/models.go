package calls

import "time"

// Call represents one call attempt between a caller (resident, staff or
// anonymous visitor) and a receiving resident.
//
// NOTE: This is a domain model only. Signaling/transport state (socket ids,
// room membership) is ephemeral and never stored here.
//
// Lifecycle invariants:
// - AnsweredAt is set iff the call is or has passed through ANSWERED.
// - DurationSeconds is set iff AnsweredAt is set and the status is terminal.
// - A terminal status (REJECTED, ENDED, MISSED) never changes again.

type Call struct {
	ID string `json:"id" db:"id"`

	// CallerID is the authenticated caller's user id; empty for visitor calls.
	CallerID string `json:"caller_id,omitempty" db:"caller_id"`
	// CallerVisitorID is the ephemeral visitor id; empty for user calls.
	CallerVisitorID string `json:"caller_visitor_id,omitempty" db:"caller_visitor_id"`

	CallerName string     `json:"caller_name" db:"caller_name"`
	CallerType CallerType `json:"caller_type" db:"caller_type"`

	// ReceiverID is always an authenticated user; visitors cannot receive calls.
	ReceiverID string `json:"receiver_id" db:"receiver_id"`

	Type   CallType   `json:"type" db:"type"`
	Status CallStatus `json:"status" db:"status"`

	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty" db:"answered_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is derived: floor(ended_at - answered_at) in whole seconds.
	DurationSeconds *int `json:"duration,omitempty" db:"duration"`
}

type CallStatus string

const (
	StatusRinging  CallStatus = "RINGING"
	StatusAnswered CallStatus = "ANSWERED"
	StatusRejected CallStatus = "REJECTED"
	StatusEnded    CallStatus = "ENDED"
	StatusMissed   CallStatus = "MISSED"
)

// Terminal reports whether the status is final.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusEnded, StatusMissed:
		return true
	default:
		return false
	}
}

type CallType string

const (
	TypeVideo CallType = "VIDEO"
	TypeAudio CallType = "AUDIO"
)

func (t CallType) Valid() bool { return t == TypeVideo || t == TypeAudio }

type CallerType string

const (
	CallerUser    CallerType = "user"
	CallerVisitor CallerType = "visitor"
)

// CallerKey returns the routing key of the caller: the user id for
// authenticated callers, the ephemeral id for visitors.
func (c Call) CallerKey() string {
	if c.CallerType == CallerVisitor {
		return c.CallerVisitorID
	}
	return c.CallerID
}

// HasParty reports whether the given identity key (user id or visitor id)
// is the caller or the receiver of this call.
func (c Call) HasParty(key string) bool {
	if key == "" {
		return false
	}
	return key == c.ReceiverID || key == c.CallerKey()
}
