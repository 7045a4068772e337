package signaling

import "encoding/json"

// EventType names a signaling event on the wire.
type EventType string

// Client -> server events.
const (
	EventStartCall    EventType = "start_call"
	EventAnswerCall   EventType = "answer_call"
	EventRejectCall   EventType = "reject_call"
	EventEndCall      EventType = "end_call"
	EventJoinCall     EventType = "join_call"
	EventLeaveCall    EventType = "leave_call"
	EventWebRTCOffer  EventType = "webrtc_offer"
	EventWebRTCAnswer EventType = "webrtc_answer"
	EventWebRTCICE    EventType = "webrtc_ice_candidate"
	EventToggleAudio  EventType = "toggle_audio"
	EventToggleVideo  EventType = "toggle_video"
)

// Server -> client events. The three webrtc_* names are shared: relayed
// messages keep their inbound event name.
const (
	EventIncomingCall     EventType = "incoming_call"
	EventCallStarted      EventType = "call_started"
	EventCallAnswered     EventType = "call_answered"
	EventCallRejected     EventType = "call_rejected"
	EventCallEnded        EventType = "call_ended"
	EventCallError        EventType = "call_error"
	EventPeerJoined       EventType = "peer_joined"
	EventPeerLeft         EventType = "peer_left"
	EventPeerDisconnected EventType = "peer_disconnected"
	EventPeerAudioToggle  EventType = "peer_audio_toggle"
	EventPeerVideoToggle  EventType = "peer_video_toggle"
)

// Envelope is the wire format of every signaling message, in and out.
// Payload is opaque to the relay: SDP and ICE blobs pass through unparsed.
type Envelope struct {
	Event  EventType `json:"event"`
	CallID string    `json:"callId,omitempty"`

	// From is the sender's socket id, set by the server on relayed messages.
	From string `json:"from,omitempty"`
	// To optionally targets one socket; empty means the whole call room.
	To string `json:"to,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is attached to call_error events.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StartCallPayload is the payload of start_call. Either ReceiverID or
// UnitKey must be set; UnitKey is resolved through the unit directory.
type StartCallPayload struct {
	ReceiverID string `json:"receiverId,omitempty"`
	UnitKey    string `json:"unitKey,omitempty"`
	CallType   string `json:"callType"`
}

// TogglePayload is the payload of toggle_audio / toggle_video and of the
// corresponding peer_*_toggle broadcasts.
type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

// PeerPayload identifies a peer in room membership broadcasts.
type PeerPayload struct {
	SocketID    string `json:"socketId"`
	DisplayName string `json:"displayName,omitempty"`
}
