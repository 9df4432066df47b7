package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all documents
type Base struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch stamps the document for insertion.
func (b *Base) Touch(now time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Insight is one AI-derived observation attached to a session.
type Insight struct {
	Time     string `json:"time,omitempty"`
	Text     string `json:"text"`
	Tag      string `json:"tag,omitempty"`
	TagColor string `json:"tag_color,omitempty"`
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
