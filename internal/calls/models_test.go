package calls

import "testing"

func TestCallStatus_Terminal(t *testing.T) {
	cases := map[CallStatus]bool{
		StatusRinging:  false,
		StatusAnswered: false,
		StatusRejected: true,
		StatusEnded:    true,
		StatusMissed:   true,
	}
	for s, want := range cases {
		if got := s.Terminal(); got != want {
			t.Fatalf("Terminal(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestCallType_Valid(t *testing.T) {
	if !TypeVideo.Valid() || !TypeAudio.Valid() {
		t.Fatalf("expected VIDEO and AUDIO to be valid")
	}
	if CallType("SMS").Valid() {
		t.Fatalf("expected unknown type to be invalid")
	}
}

func TestCall_HasParty(t *testing.T) {
	user := Call{CallerType: CallerUser, CallerID: "u1", ReceiverID: "u2"}
	if !user.HasParty("u1") || !user.HasParty("u2") {
		t.Fatalf("expected caller and receiver to be parties")
	}
	if user.HasParty("u3") || user.HasParty("") {
		t.Fatalf("expected strangers and empty keys to be rejected")
	}

	visitor := Call{CallerType: CallerVisitor, CallerVisitorID: "v1", ReceiverID: "u2"}
	if !visitor.HasParty("v1") {
		t.Fatalf("expected visitor caller to be a party")
	}
	if visitor.CallerKey() != "v1" {
		t.Fatalf("expected visitor caller key, got %q", visitor.CallerKey())
	}
}
