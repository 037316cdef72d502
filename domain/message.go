// Package domain contains core concepts of the chat system.
// This file defines Message records and the media attached to them.
// Messages are immutable once persisted.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind accepts the two kinds a message may reference.
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case MediaImage:
		return MediaImage, nil
	case MediaVideo:
		return MediaVideo, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// Media is a reference to a blob held by the object storage.
type Media struct {
	URL  string
	Kind MediaKind
}

// Message represents a persisted direct message between two users.
type Message struct {
	ID        uuid.UUID
	From      UserID
	To        UserID
	Text      string
	Media     *Media
	CreatedAt time.Time
	Delivered bool
}

// IsSelfAddressed reports whether sender and recipient are the same user.
func (m Message) IsSelfAddressed() bool {
	return m.From == m.To
}
