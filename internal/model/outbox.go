package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types written to the outbox after a cascade finishes.
const (
	EventAppointmentDeleted  = "appointment.deleted"
	EventGroupDeleted        = "group.deleted"
	EventActivityDeleted     = "activity.deleted"
	EventPatientDeleted      = "patient.deleted"
	EventMembershipChanged   = "membership.changed"
	EventAppointmentRetimed  = "appointment.retimed"
	EventActivityAttached    = "activity.attached"
	EventAppointmentCreated  = "appointment.created"
	EventAppointmentRetarget = "appointment.retargeted"
	EventCascadeStepsFailure = "cascade.partial_failure"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
