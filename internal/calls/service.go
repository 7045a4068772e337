package calls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/niggl1/interfoneapp/internal/auth"
)

// TransitionKind labels a lifecycle event emitted to sinks.
type TransitionKind string

const (
	TransitionCreated  TransitionKind = "created"
	TransitionAnswered TransitionKind = "answered"
	TransitionRejected TransitionKind = "rejected"
	TransitionEnded    TransitionKind = "ended"
	TransitionMissed   TransitionKind = "missed"
)

// TransitionEvent carries what an external notifier needs to decide whether
// to page an offline receiver or log a missed call.
type TransitionEvent struct {
	Kind            TransitionKind
	Call            Call
	ReceiverOffline bool
}

// TransitionSink observes call lifecycle events. Implementations must not
// block; failures are their own problem and never abort the call flow.
type TransitionSink interface {
	CallTransition(ctx context.Context, ev TransitionEvent)
}

// Presence answers whether a user currently has at least one live connection.
type Presence interface {
	Online(userID string) bool
}

// RingGuard limits concurrent ringing per receiver. A nil guard means
// unlimited (call waiting allowed).
type RingGuard interface {
	Acquire(ctx context.Context, receiverID string) (bool, error)
	Release(ctx context.Context, receiverID string) error
}

// ServiceConfig wires the session manager's collaborators. Only Store is
// required.
type ServiceConfig struct {
	Store    Store
	Logger   *slog.Logger
	Presence Presence
	Guard    RingGuard
	Sinks    []TransitionSink

	// RingTimeout resolves abandoned RINGING calls to MISSED. Zero disables
	// the server-side timer.
	RingTimeout time.Duration

	// Clock is injectable for deterministic tests.
	Clock func() time.Time
}

// Service owns the call lifecycle state machine and is the sole writer of
// call records. All transitions go through the store's conditional updates,
// so two racing requests on the same call resolve to exactly one winner; the
// loser gets ErrInvalidTransition.
type Service struct {
	store       Store
	log         *slog.Logger
	presence    Presence
	guard       RingGuard
	sinks       []TransitionSink
	ringTimeout time.Duration
	clock       func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		store:       cfg.Store,
		log:         cfg.Logger,
		presence:    cfg.Presence,
		guard:       cfg.Guard,
		sinks:       cfg.Sinks,
		ringTimeout: cfg.RingTimeout,
		clock:       cfg.Clock,
		timers:      make(map[string]*time.Timer),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

type CreateCallInput struct {
	Caller     auth.Identity
	ReceiverID string
	Type       CallType
}

// CreateCall creates a new call in RINGING and arms the ring timer.
// Receiver existence is not checked here; the caller resolves identity first.
func (s *Service) CreateCall(ctx context.Context, in CreateCallInput) (Call, error) {
	if strings.TrimSpace(in.ReceiverID) == "" {
		return Call{}, fmt.Errorf("%w: receiver id is required", ErrInvalidArgument)
	}
	if !in.Type.Valid() {
		return Call{}, fmt.Errorf("%w: call type must be VIDEO or AUDIO", ErrInvalidArgument)
	}
	if in.Caller.Kind == "" {
		return Call{}, fmt.Errorf("%w: caller identity is required", ErrInvalidArgument)
	}

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, in.ReceiverID)
		if err != nil {
			return Call{}, fmt.Errorf("ring guard: %w", err)
		}
		if !ok {
			return Call{}, ErrReceiverBusy
		}
	}

	c := Call{
		ID:         uuid.NewString(),
		CallerName: in.Caller.DisplayName,
		ReceiverID: in.ReceiverID,
		Type:       in.Type,
		Status:     StatusRinging,
		StartedAt:  s.clock().UTC(),
	}
	if in.Caller.IsUser() {
		c.CallerType = CallerUser
		c.CallerID = in.Caller.UserID
	} else {
		c.CallerType = CallerVisitor
		c.CallerVisitorID = in.Caller.VisitorID
	}

	if err := s.store.Create(ctx, c); err != nil {
		if s.guard != nil {
			_ = s.guard.Release(ctx, in.ReceiverID)
		}
		return Call{}, err
	}

	s.armRingTimer(c.ID)
	s.emit(ctx, TransitionCreated, c)
	return c, nil
}

// AnswerCall transitions RINGING -> ANSWERED. Only the receiver may answer.
func (s *Service) AnswerCall(ctx context.Context, callID string, actor auth.Identity) (Call, error) {
	c, err := s.authorized(ctx, callID, actor)
	if err != nil {
		return Call{}, err
	}
	if actor.Key() != c.ReceiverID {
		return Call{}, ErrForbidden
	}

	updated, ok, err := s.store.MarkAnswered(ctx, callID, s.clock().UTC())
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrInvalidTransition
	}

	// Ringing is over; free the timer and the receiver's ring slot.
	s.finishRinging(ctx, updated)
	s.emit(ctx, TransitionAnswered, updated)
	return updated, nil
}

// RejectCall transitions RINGING -> REJECTED. Only the receiver may reject.
func (s *Service) RejectCall(ctx context.Context, callID string, actor auth.Identity) (Call, error) {
	c, err := s.authorized(ctx, callID, actor)
	if err != nil {
		return Call{}, err
	}
	if actor.Key() != c.ReceiverID {
		return Call{}, ErrForbidden
	}

	updated, ok, err := s.store.MarkRejected(ctx, callID, s.clock().UTC())
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrInvalidTransition
	}

	s.finishRinging(ctx, updated)
	s.emit(ctx, TransitionRejected, updated)
	return updated, nil
}

// EndCall ends a call from any non-terminal status: ANSWERED becomes ENDED,
// a never-answered RINGING call becomes MISSED. Ending an already-terminal
// call is a no-op returning the stored record; both parties routinely end
// redundantly.
func (s *Service) EndCall(ctx context.Context, callID string, actor auth.Identity) (Call, error) {
	if _, err := s.authorized(ctx, callID, actor); err != nil {
		return Call{}, err
	}
	return s.end(ctx, callID)
}

func (s *Service) end(ctx context.Context, callID string) (Call, error) {
	now := s.clock().UTC()

	if updated, ok, err := s.store.MarkEnded(ctx, callID, now); err != nil {
		return Call{}, err
	} else if ok {
		s.cancelRingTimer(callID)
		s.emit(ctx, TransitionEnded, updated)
		return updated, nil
	}

	if updated, ok, err := s.store.MarkMissed(ctx, callID, now); err != nil {
		return Call{}, err
	} else if ok {
		s.finishRinging(ctx, updated)
		s.emit(ctx, TransitionMissed, updated)
		return updated, nil
	}

	// Neither branch matched: the call is already terminal (idempotent end)
	// or it vanished.
	return s.store.Get(ctx, callID)
}

// ActiveCallFor returns the user's most recent call in RINGING or ANSWERED.
func (s *Service) ActiveCallFor(ctx context.Context, userID string) (Call, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return Call{}, false, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	return s.store.ActiveFor(ctx, userID)
}

// HistoryFor returns the user's call history, newest first.
func (s *Service) HistoryFor(ctx context.Context, userID string, limit int) ([]Call, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListFor(ctx, userID, limit)
}

// GetCall returns a call the actor is a party to.
func (s *Service) GetCall(ctx context.Context, callID string, actor auth.Identity) (Call, error) {
	return s.authorized(ctx, callID, actor)
}

func (s *Service) authorized(ctx context.Context, callID string, actor auth.Identity) (Call, error) {
	if strings.TrimSpace(callID) == "" {
		return Call{}, fmt.Errorf("%w: call id is required", ErrInvalidArgument)
	}
	c, err := s.store.Get(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	if !c.HasParty(actor.Key()) {
		return Call{}, ErrForbidden
	}
	return c, nil
}

// Close stops all pending ring timers. Calls left RINGING will be resolved
// by their clients or by the next process through the usual end path.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) armRingTimer(callID string) {
	if s.ringTimeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[callID] = time.AfterFunc(s.ringTimeout, func() {
		s.expireRing(callID)
	})
}

func (s *Service) cancelRingTimer(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[callID]; ok {
		t.Stop()
		delete(s.timers, callID)
	}
}

// expireRing resolves an abandoned RINGING call to MISSED. Harmless if the
// call was answered or ended in the meantime: the conditional update simply
// does not match.
func (s *Service) expireRing(callID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updated, ok, err := s.store.MarkMissed(ctx, callID, s.clock().UTC())
	if err != nil {
		s.log.Error("ring timeout transition failed", "call_id", callID, "err", err)
		return
	}
	if !ok {
		s.cancelRingTimer(callID)
		return
	}

	s.log.Info("call missed on ring timeout", "call_id", callID, "receiver_id", updated.ReceiverID)
	s.finishRinging(ctx, updated)
	s.emit(ctx, TransitionMissed, updated)
}

// finishRinging releases per-call ringing resources once a call leaves
// RINGING (answered, rejected or missed).
func (s *Service) finishRinging(ctx context.Context, c Call) {
	s.cancelRingTimer(c.ID)
	if s.guard != nil {
		if err := s.guard.Release(ctx, c.ReceiverID); err != nil {
			s.log.Warn("ring guard release failed", "call_id", c.ID, "err", err)
		}
	}
}

func (s *Service) emit(ctx context.Context, kind TransitionKind, c Call) {
	ev := TransitionEvent{Kind: kind, Call: c}
	if s.presence != nil {
		ev.ReceiverOffline = !s.presence.Online(c.ReceiverID)
	}
	for _, sink := range s.sinks {
		sink.CallTransition(ctx, ev)
	}
}
