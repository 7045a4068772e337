package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/niggl1/interfoneapp/internal/calls"
)

func sampleEvent(kind calls.TransitionKind, offline bool) calls.TransitionEvent {
	return calls.TransitionEvent{
		Kind: kind,
		Call: calls.Call{
			ID:         "call-1",
			CallerName: "Courier",
			CallerType: calls.CallerVisitor,
			ReceiverID: "user-1",
			Type:       calls.TypeVideo,
			Status:     calls.StatusMissed,
			StartedAt:  time.Now().UTC(),
		},
		ReceiverOffline: offline,
	}
}

func TestLogSink_MissedOfflineIsWarning(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.CallTransition(context.Background(), sampleEvent(calls.TransitionMissed, true))

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected WARN entry, got %s", out)
	}
	if !strings.Contains(out, "call-1") {
		t.Fatalf("expected call id in entry, got %s", out)
	}
}

func TestLogSink_AnsweredIsInfo(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.CallTransition(context.Background(), sampleEvent(calls.TransitionAnswered, false))

	if !strings.Contains(buf.String(), `"level":"INFO"`) {
		t.Fatalf("expected INFO entry, got %s", buf.String())
	}
}
