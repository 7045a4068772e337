package directory

import (
	"context"
	"errors"
)

var (
	ErrUnitNotFound = errors.New("directory: unit not found")
	ErrNoResidents  = errors.New("directory: unit has no active residents")
)

// Resolver turns a unit lookup key (the value behind a lobby QR code or
// door-panel shortcut) into the user id that should receive the call.
//
// Unit and resident CRUD lives in the main condominium API; this core only
// consumes the mapping.
type Resolver interface {
	ResolveReceiver(ctx context.Context, unitKey string) (string, error)
}

// Resident is one occupant of a unit, in panel display order.
type Resident struct {
	UserID string
	Name   string
	Active bool
}

// Unit is a callable destination: an apartment or house inside the
// condominium.
type Unit struct {
	Key       string
	Label     string
	Residents []Resident
}

// Presence lets the resolver prefer residents who are currently connected.
type Presence interface {
	Online(userID string) bool
}
