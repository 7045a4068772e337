// Package notify fans call lifecycle events out to delivery channels that
// live outside the websocket session: a Redis pub/sub feed consumed by the
// push gateway, and a structured log trail.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/niggl1/interfoneapp/internal/calls"
)

// Message is the payload published for each lifecycle event.
type Message struct {
	Event           string     `json:"event"`
	CallID          string     `json:"callId"`
	CallerName      string     `json:"callerName"`
	CallerType      string     `json:"callerType"`
	ReceiverID      string     `json:"receiverId"`
	CallType        string     `json:"callType"`
	Status          string     `json:"status"`
	ReceiverOffline bool       `json:"receiverOffline"`
	OccurredAt      time.Time  `json:"occurredAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
}

// RedisPublisher publishes lifecycle events to per-receiver channels so a
// push gateway can wake devices with no live socket. Publish failures are
// logged and dropped.
type RedisPublisher struct {
	log    *slog.Logger
	rdb    *redis.Client
	prefix string
}

func NewRedisPublisher(log *slog.Logger, rdb *redis.Client) *RedisPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{log: log, rdb: rdb, prefix: "notify:user:"}
}

func (p *RedisPublisher) CallTransition(ctx context.Context, ev calls.TransitionEvent) {
	msg := Message{
		Event:           string(ev.Kind),
		CallID:          ev.Call.ID,
		CallerName:      ev.Call.CallerName,
		CallerType:      string(ev.Call.CallerType),
		ReceiverID:      ev.Call.ReceiverID,
		CallType:        string(ev.Call.Type),
		Status:          string(ev.Call.Status),
		ReceiverOffline: ev.ReceiverOffline,
		OccurredAt:      time.Now().UTC(),
		EndedAt:         ev.Call.EndedAt,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("marshal notification failed", "call_id", ev.Call.ID, "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.prefix+ev.Call.ReceiverID, data).Err(); err != nil {
		p.log.Warn("publish notification failed", "call_id", ev.Call.ID, "err", err)
	}
}

// LogSink writes every lifecycle event to the structured log. Missed calls
// with an offline receiver are warnings so operators can spot units whose
// devices never ring.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) CallTransition(_ context.Context, ev calls.TransitionEvent) {
	attrs := []any{
		"call_id", ev.Call.ID,
		"status", ev.Call.Status,
		"caller_type", ev.Call.CallerType,
		"receiver_id", ev.Call.ReceiverID,
	}
	if ev.Kind == calls.TransitionMissed && ev.ReceiverOffline {
		s.log.Warn("call missed with receiver offline", attrs...)
		return
	}
	s.log.Info("call "+string(ev.Kind), attrs...)
}
