// Package domain contains core concepts of the chat system.
// This file defines the identities a live connection can carry.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// UserID is the opaque identity issued by the authentication service.
type UserID string

func (u UserID) String() string { return string(u) }

// ConnectionID identifies one live transport connection (a tab or a device).
type ConnectionID string

func (c ConnectionID) String() string { return string(c) }

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}
