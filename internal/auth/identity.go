package auth

import (
	"strings"

	"github.com/google/uuid"
)

type IdentityKind string

const (
	IdentityUser    IdentityKind = "user"
	IdentityVisitor IdentityKind = "visitor"
)

// Identity is the tagged union of connection-time identities.
// Users come from a verified access token; visitors carry only an
// ephemeral id minted (or supplied) at handshake time. Exactly one of
// UserID / VisitorID is set, selected by Kind.
type Identity struct {
	Kind IdentityKind

	// UserID is set iff Kind == IdentityUser.
	UserID string
	Role   string

	// VisitorID is set iff Kind == IdentityVisitor.
	VisitorID string
	Phone     string

	DisplayName string
}

func NewUser(userID, name, role string) Identity {
	return Identity{Kind: IdentityUser, UserID: userID, DisplayName: name, Role: role}
}

// NewVisitor builds a visitor identity. An empty id gets a fresh UUID;
// client-supplied ids are accepted so a visitor can survive a reconnect.
func NewVisitor(id, name, phone string) Identity {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(name) == "" {
		name = "Visitante"
	}
	return Identity{Kind: IdentityVisitor, VisitorID: id, DisplayName: name, Phone: phone}
}

func (i Identity) IsUser() bool    { return i.Kind == IdentityUser }
func (i Identity) IsVisitor() bool { return i.Kind == IdentityVisitor }

// Key returns the routing key for this identity: the user id for users,
// the ephemeral id for visitors.
func (i Identity) Key() string {
	if i.IsUser() {
		return i.UserID
	}
	return i.VisitorID
}
