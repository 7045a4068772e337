package registry

import (
	"sort"
	"testing"

	"github.com/niggl1/interfoneapp/internal/auth"
)

func TestRegister_MultiDeviceUser(t *testing.T) {
	r := New(nil)
	u := auth.NewUser("u1", "Ana", "resident")

	r.Register("s1", u)
	r.Register("s2", u)

	conns := r.ConnectionsFor("u1")
	sort.Strings(conns)
	if len(conns) != 2 || conns[0] != "s1" || conns[1] != "s2" {
		t.Fatalf("unexpected connections: %v", conns)
	}
	if !r.Online("u1") {
		t.Fatalf("expected user online")
	}
}

func TestUnregister_LastSocketGoesOffline(t *testing.T) {
	r := New(nil)
	u := auth.NewUser("u1", "Ana", "resident")
	r.Register("s1", u)
	r.Register("s2", u)

	id, offline := r.Unregister("s1")
	if offline {
		t.Fatalf("expected user still online with a second device")
	}
	if id.UserID != "u1" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	_, offline = r.Unregister("s2")
	if !offline {
		t.Fatalf("expected offline on last disconnect")
	}
	if r.Online("u1") {
		t.Fatalf("expected user offline")
	}
	if len(r.ConnectionsFor("u1")) != 0 {
		t.Fatalf("expected no connections left")
	}
}

func TestUnregister_UnknownSocketIsNoop(t *testing.T) {
	r := New(nil)
	if _, offline := r.Unregister("ghost"); offline {
		t.Fatalf("expected no offline signal for unknown socket")
	}
}

func TestVisitor_SingleConnection(t *testing.T) {
	r := New(nil)
	v := auth.NewVisitor("v1", "Entregador", "")

	r.Register("s1", v)
	if s, ok := r.ConnectionFor("v1"); !ok || s != "s1" {
		t.Fatalf("expected visitor on s1, got %q ok=%v", s, ok)
	}

	// Reconnect with the same visitor id displaces the old socket.
	r.Register("s2", v)
	if s, _ := r.ConnectionFor("v1"); s != "s2" {
		t.Fatalf("expected visitor moved to s2, got %q", s)
	}
	if _, ok := r.IdentityFor("s1"); ok {
		t.Fatalf("expected displaced socket to be dropped")
	}

	// The stale socket's disconnect must not tear down the replacement.
	if _, offline := r.Unregister("s1"); offline {
		t.Fatalf("stale socket should not mark visitor offline")
	}
	if s, ok := r.ConnectionFor("v1"); !ok || s != "s2" {
		t.Fatalf("expected replacement intact, got %q ok=%v", s, ok)
	}
}

func TestReconnect_IndependentOfStaleEntry(t *testing.T) {
	r := New(nil)
	u := auth.NewUser("u1", "Ana", "resident")

	r.Register("s1", u)
	r.Unregister("s1")
	r.Register("s2", u)

	conns := r.ConnectionsFor("u1")
	if len(conns) != 1 || conns[0] != "s2" {
		t.Fatalf("expected fresh entry only, got %v", conns)
	}
}

func TestConnectionsForKey_BothKinds(t *testing.T) {
	r := New(nil)
	r.Register("s1", auth.NewUser("u1", "Ana", "resident"))
	r.Register("s2", auth.NewVisitor("v1", "Entregador", ""))

	if got := r.ConnectionsForKey("u1"); len(got) != 1 || got[0] != "s1" {
		t.Fatalf("unexpected user sockets: %v", got)
	}
	if got := r.ConnectionsForKey("v1"); len(got) != 1 || got[0] != "s2" {
		t.Fatalf("unexpected visitor sockets: %v", got)
	}
	if got := r.ConnectionsForKey("nobody"); got != nil {
		t.Fatalf("expected nil for unknown key, got %v", got)
	}
}

func TestDrain_EmptiesEverything(t *testing.T) {
	r := New(nil)
	r.Register("s1", auth.NewUser("u1", "Ana", "resident"))
	r.Register("s2", auth.NewVisitor("v1", "Entregador", ""))

	drained := r.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected both sockets drained, got %v", drained)
	}
	if r.Online("u1") {
		t.Fatalf("expected empty registry after drain")
	}
	if _, ok := r.ConnectionFor("v1"); ok {
		t.Fatalf("expected visitor gone after drain")
	}
}
