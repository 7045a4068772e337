package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/niggl1/interfoneapp/internal/calls"
)

// Sink records every call transition into the trail. Append failures are
// logged and swallowed so the call flow never stalls on the audit store.
type Sink struct {
	log   *slog.Logger
	store Log
	clock func() time.Time
}

func NewSink(log *slog.Logger, store Log) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{log: log, store: store, clock: time.Now}
}

func (s *Sink) CallTransition(ctx context.Context, ev calls.TransitionEvent) {
	entry := Entry{
		ID:         newEntryID(),
		CallID:     ev.Call.ID,
		Kind:       string(ev.Kind),
		Status:     string(ev.Call.Status),
		CallerType: string(ev.Call.CallerType),
		ReceiverID: ev.Call.ReceiverID,
		RecordedAt: s.clock().UTC(),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.log.Error("audit append failed", "call_id", ev.Call.ID, "err", err)
	}
}
