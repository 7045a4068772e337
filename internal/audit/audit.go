// Package audit keeps an append-only trail of call lifecycle transitions.
// Entries are written by a sink on the session manager and are never
// updated or deleted.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded transition.
type Entry struct {
	ID         string    `json:"id"`
	CallID     string    `json:"callId"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	CallerType string    `json:"callerType"`
	ReceiverID string    `json:"receiverId"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Log is the storage behind the trail.
type Log interface {
	Append(ctx context.Context, e Entry) error
	ByCall(ctx context.Context, callID string) ([]Entry, error)
}

func newEntryID() string { return uuid.NewString() }
