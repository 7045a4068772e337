package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/niggl1/interfoneapp/internal/auth"
	"github.com/niggl1/interfoneapp/internal/calls"
	"github.com/niggl1/interfoneapp/internal/directory"
	"github.com/niggl1/interfoneapp/internal/registry"
)

const eventTimeout = 10 * time.Second

// Relay routes signaling events between the connections resolved by the
// registry. It owns no call state: lifecycle decisions belong to the session
// manager, and the only state held here is call-room membership. SDP and ICE
// payloads are carried, never interpreted.
//
// The relay is also a transition sink on the session manager, so lifecycle
// changes reach connected devices no matter where they originate: a
// signaling event, a REST call, or the server-side ring timer.
type Relay struct {
	log   *slog.Logger
	calls *calls.Service
	reg   *registry.Registry
	rooms *Rooms
	dir   directory.Resolver

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRelay(log *slog.Logger, reg *registry.Registry, rooms *Rooms, dir directory.Resolver) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{
		log:     log,
		reg:     reg,
		rooms:   rooms,
		dir:     dir,
		clients: make(map[string]*Client),
	}
}

// BindService attaches the session manager. The relay and the manager
// reference each other (the relay invokes operations, the manager emits
// transitions back through the sink), so the service is bound after both
// are constructed.
func (r *Relay) BindService(svc *calls.Service) {
	r.calls = svc
}

// CallTransition delivers a lifecycle change to connected devices. A new
// call rings every device of the receiver; later transitions go to the call
// room and to every connection of both parties. MISSED and ENDED both travel
// as call_ended, with the payload carrying the terminal status.
func (r *Relay) CallTransition(_ context.Context, ev calls.TransitionEvent) {
	switch ev.Kind {
	case calls.TransitionCreated:
		env := Envelope{Event: EventIncomingCall, CallID: ev.Call.ID, Payload: mustJSON(ev.Call)}
		for _, socketID := range r.reg.ConnectionsFor(ev.Call.ReceiverID) {
			if target := r.client(socketID); target != nil {
				target.Send(env)
			}
		}
	case calls.TransitionAnswered:
		r.broadcastCallStatus(EventCallAnswered, ev.Call)
	case calls.TransitionRejected:
		r.broadcastCallStatus(EventCallRejected, ev.Call)
	case calls.TransitionEnded, calls.TransitionMissed:
		r.broadcastCallStatus(EventCallEnded, ev.Call)
	}
}

// Connect registers a new connection with the relay and the registry.
func (r *Relay) Connect(c *Client) {
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()

	r.reg.Register(c.ID, c.Identity)
	r.log.Info("socket connected",
		"socket_id", c.ID,
		"kind", c.Identity.Kind,
		"identity", c.Identity.Key(),
	)
}

// Disconnect tears a connection down: every call room the socket occupied
// hears peer_disconnected, and the registry forgets the socket.
func (r *Relay) Disconnect(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	for _, callID := range r.rooms.LeaveAll(ctx, c) {
		r.rooms.Broadcast(callID, c, Envelope{
			Event:   EventPeerDisconnected,
			CallID:  callID,
			From:    c.ID,
			Payload: mustJSON(PeerPayload{SocketID: c.ID, DisplayName: c.Identity.DisplayName}),
		})
	}

	_, offline := r.reg.Unregister(c.ID)
	r.mu.Lock()
	delete(r.clients, c.ID)
	r.mu.Unlock()

	r.log.Info("socket disconnected", "socket_id", c.ID, "identity_offline", offline)
}

// Shutdown closes every remaining connection at process exit. Closing the
// conn unwinds both pumps; the send channel itself is never closed so late
// Sends cannot panic.
func (r *Relay) Shutdown() {
	for _, socketID := range r.reg.Drain() {
		if c := r.client(socketID); c != nil && c.conn != nil {
			_ = c.conn.Close()
		}
	}
	r.mu.Lock()
	r.clients = make(map[string]*Client)
	r.mu.Unlock()
}

// HandleEvent dispatches one inbound event. Failures come back to the
// requesting socket as call_error; other room members never see them.
func (r *Relay) HandleEvent(c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch env.Event {
	case EventStartCall:
		r.handleStartCall(ctx, c, env)
	case EventAnswerCall:
		r.handleLifecycle(ctx, c, env, r.calls.AnswerCall)
	case EventRejectCall:
		r.handleLifecycle(ctx, c, env, r.calls.RejectCall)
	case EventEndCall:
		r.handleLifecycle(ctx, c, env, r.calls.EndCall)
	case EventJoinCall:
		r.handleJoin(ctx, c, env)
	case EventLeaveCall:
		r.handleLeave(ctx, c, env)
	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICE:
		r.relaySignal(c, env)
	case EventToggleAudio:
		r.relayToggle(c, env, EventPeerAudioToggle)
	case EventToggleVideo:
		r.relayToggle(c, env, EventPeerVideoToggle)
	default:
		r.sendError(c, env.CallID, "unknown_event", "unsupported event type")
	}
}

func (r *Relay) handleStartCall(ctx context.Context, c *Client, env Envelope) {
	var p StartCallPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		r.sendError(c, "", "validation", "malformed start_call payload")
		return
	}

	receiverID := strings.TrimSpace(p.ReceiverID)
	if receiverID == "" && strings.TrimSpace(p.UnitKey) != "" {
		resolved, err := r.dir.ResolveReceiver(ctx, p.UnitKey)
		if err != nil {
			r.sendCallError(c, "", err)
			return
		}
		receiverID = resolved
	}

	// The created transition fans incoming_call out to the receiver's
	// devices before this returns.
	call, err := r.calls.CreateCall(ctx, calls.CreateCallInput{
		Caller:     c.Identity,
		ReceiverID: receiverID,
		Type:       calls.CallType(strings.ToUpper(p.CallType)),
	})
	if err != nil {
		r.sendCallError(c, "", err)
		return
	}

	r.rooms.Join(ctx, c, call.ID)
	c.Send(Envelope{Event: EventCallStarted, CallID: call.ID, Payload: mustJSON(call)})

	r.log.Info("call started",
		"call_id", call.ID,
		"caller_type", call.CallerType,
		"receiver_id", call.ReceiverID,
	)
}

type lifecycleOp func(ctx context.Context, callID string, actor auth.Identity) (calls.Call, error)

// handleLifecycle runs one session manager operation. Success is broadcast
// through the transition sink; failures come back to this socket only.
func (r *Relay) handleLifecycle(ctx context.Context, c *Client, env Envelope, op lifecycleOp) {
	if env.CallID == "" {
		r.sendError(c, "", "validation", "callId is required")
		return
	}

	if _, err := op(ctx, env.CallID, c.Identity); err != nil {
		r.sendCallError(c, env.CallID, err)
	}
}

func (r *Relay) handleJoin(ctx context.Context, c *Client, env Envelope) {
	if env.CallID == "" {
		r.sendError(c, "", "validation", "callId is required")
		return
	}
	if r.rooms.Join(ctx, c, env.CallID) {
		r.rooms.Broadcast(env.CallID, c, Envelope{
			Event:   EventPeerJoined,
			CallID:  env.CallID,
			From:    c.ID,
			Payload: mustJSON(PeerPayload{SocketID: c.ID, DisplayName: c.Identity.DisplayName}),
		})
	}
}

func (r *Relay) handleLeave(ctx context.Context, c *Client, env Envelope) {
	if env.CallID == "" {
		r.sendError(c, "", "validation", "callId is required")
		return
	}
	if r.rooms.Leave(ctx, c, env.CallID) {
		r.rooms.Broadcast(env.CallID, c, Envelope{
			Event:   EventPeerLeft,
			CallID:  env.CallID,
			From:    c.ID,
			Payload: mustJSON(PeerPayload{SocketID: c.ID, DisplayName: c.Identity.DisplayName}),
		})
	}
}

// relaySignal forwards a WebRTC negotiation message: to one named socket, or
// to every other member of the call room. The payload passes through opaque.
func (r *Relay) relaySignal(c *Client, env Envelope) {
	if env.CallID == "" {
		r.sendError(c, "", "validation", "callId is required")
		return
	}

	env.From = c.ID
	if env.To != "" {
		if target := r.client(env.To); target != nil {
			target.Send(env)
		} else {
			r.log.Debug("signal target gone", "call_id", env.CallID, "to", env.To)
		}
		return
	}
	r.rooms.Broadcast(env.CallID, c, env)
}

func (r *Relay) relayToggle(c *Client, env Envelope, out EventType) {
	if env.CallID == "" {
		r.sendError(c, "", "validation", "callId is required")
		return
	}
	r.rooms.Broadcast(env.CallID, c, Envelope{
		Event:   out,
		CallID:  env.CallID,
		From:    c.ID,
		Payload: env.Payload,
	})
}

// broadcastCallStatus delivers a lifecycle event to the call room and to
// every connection of both parties, covering parties that have not joined
// the room yet (e.g. a second device that should stop ringing). Each socket
// hears it once.
func (r *Relay) broadcastCallStatus(event EventType, call calls.Call) {
	seen := make(map[*Client]struct{})
	for _, member := range r.rooms.Members(call.ID) {
		seen[member] = struct{}{}
	}
	for _, key := range []string{call.ReceiverID, call.CallerKey()} {
		for _, socketID := range r.reg.ConnectionsForKey(key) {
			if c := r.client(socketID); c != nil {
				seen[c] = struct{}{}
			}
		}
	}

	env := Envelope{Event: event, CallID: call.ID, Payload: mustJSON(call)}
	for c := range seen {
		c.Send(env)
	}
}

func (r *Relay) client(socketID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[socketID]
}

func (r *Relay) sendCallError(c *Client, callID string, err error) {
	switch {
	case errors.Is(err, calls.ErrNotFound):
		r.sendError(c, callID, "not_found", "call not found")
	case errors.Is(err, calls.ErrForbidden):
		r.sendError(c, callID, "forbidden", "not a party to this call")
	case errors.Is(err, calls.ErrInvalidTransition):
		r.sendError(c, callID, "invalid_transition", "call is not in a valid state for this operation")
	case errors.Is(err, calls.ErrReceiverBusy):
		r.sendError(c, callID, "receiver_busy", "receiver already has a call ringing")
	case errors.Is(err, calls.ErrInvalidArgument):
		r.sendError(c, callID, "validation", err.Error())
	case errors.Is(err, directory.ErrUnitNotFound), errors.Is(err, directory.ErrNoResidents):
		r.sendError(c, callID, "unit_unavailable", err.Error())
	default:
		r.log.Error("event handling failed", "call_id", callID, "err", err)
		r.sendError(c, callID, "internal", "internal error")
	}
}

func (r *Relay) sendError(c *Client, callID, code, message string) {
	c.Send(Envelope{
		Event:  EventCallError,
		CallID: callID,
		Error:  &ErrorBody{Code: code, Message: message},
	})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable for types that cannot be marshaled, which would
		// be a programming error.
		return json.RawMessage(`{}`)
	}
	return data
}
