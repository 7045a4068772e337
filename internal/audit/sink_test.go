package audit

import (
	"context"
	"testing"
	"time"

	"github.com/niggl1/interfoneapp/internal/calls"
)

func transition(kind calls.TransitionKind, status calls.CallStatus) calls.TransitionEvent {
	return calls.TransitionEvent{
		Kind: kind,
		Call: calls.Call{
			ID:         "call-1",
			CallerType: calls.CallerVisitor,
			ReceiverID: "user-1",
			Type:       calls.TypeVideo,
			Status:     status,
			StartedAt:  time.Now().UTC(),
		},
	}
}

func TestSink_RecordsTransitionsInOrder(t *testing.T) {
	store := NewMemoryLog()
	sink := NewSink(nil, store)
	ctx := context.Background()

	sink.CallTransition(ctx, transition(calls.TransitionCreated, calls.StatusRinging))
	sink.CallTransition(ctx, transition(calls.TransitionAnswered, calls.StatusAnswered))
	sink.CallTransition(ctx, transition(calls.TransitionEnded, calls.StatusEnded))

	entries, err := store.ByCall(ctx, "call-1")
	if err != nil {
		t.Fatalf("by call: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"created", "answered", "ended"}
	for i, kind := range want {
		if entries[i].Kind != kind {
			t.Fatalf("entry %d: expected %s, got %s", i, kind, entries[i].Kind)
		}
		if entries[i].ID == "" {
			t.Fatalf("entry %d: missing id", i)
		}
	}
}

func TestMemoryLog_FiltersByCall(t *testing.T) {
	store := NewMemoryLog()
	ctx := context.Background()

	_ = store.Append(ctx, Entry{ID: "a", CallID: "call-1", Kind: "created"})
	_ = store.Append(ctx, Entry{ID: "b", CallID: "call-2", Kind: "created"})

	entries, err := store.ByCall(ctx, "call-2")
	if err != nil {
		t.Fatalf("by call: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Fatalf("expected only call-2 entries, got %+v", entries)
	}
}
