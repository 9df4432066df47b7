package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentKind string

const (
	AppointmentKindGroup      AppointmentKind = "group"
	AppointmentKindIndividual AppointmentKind = "individual"
)

func (k AppointmentKind) Valid() bool {
	return k == AppointmentKindGroup || k == AppointmentKindIndividual
}

type AppointmentStatus string

const (
	AppointmentStatusUpcoming  AppointmentStatus = "upcoming"
	AppointmentStatusOngoing   AppointmentStatus = "ongoing"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// DeriveStatus labels an appointment from the clock. The stored status is
// only ever a cached copy of this value.
func DeriveStatus(now, start, end time.Time) AppointmentStatus {
	switch {
	case now.Before(start):
		return AppointmentStatusUpcoming
	case !now.After(end):
		return AppointmentStatusOngoing
	default:
		return AppointmentStatusCompleted
	}
}

type Appointment struct {
	Base
	Kind           AppointmentKind   `json:"type"`
	GroupID        *uuid.UUID        `json:"group_id,omitempty"`
	PatientID      *uuid.UUID        `json:"patient_id,omitempty"`
	Start          time.Time         `json:"date_time_start"`
	End            time.Time         `json:"date_time_end"`
	Status         AppointmentStatus `json:"status"`
	Activities     []uuid.UUID       `json:"activities"`
	Recommendation *uuid.UUID        `json:"recommendation,omitempty"`
	AIInsights     []Insight         `json:"ai_insights,omitempty"`
}

// ValidateTarget checks that exactly one target is set and that it matches
// the appointment kind.
func (a *Appointment) ValidateTarget() error {
	switch a.Kind {
	case AppointmentKindGroup:
		if a.GroupID == nil || a.PatientID != nil {
			return fmt.Errorf("group appointment must reference exactly one group")
		}
	case AppointmentKindIndividual:
		if a.PatientID == nil || a.GroupID != nil {
			return fmt.Errorf("individual appointment must reference exactly one patient")
		}
	default:
		return fmt.Errorf("unknown appointment type %q", a.Kind)
	}
	if !a.End.After(a.Start) {
		return fmt.Errorf("appointment must end after it starts")
	}
	return nil
}

// Refresh recomputes the derived status.
func (a *Appointment) Refresh(now time.Time) *Appointment {
	a.Status = DeriveStatus(now, a.Start, a.End)
	return a
}

type CreateAppointmentRequest struct {
	Kind      AppointmentKind `json:"type" binding:"required,appointment_kind"`
	GroupID   *uuid.UUID      `json:"group_id"`
	PatientID *uuid.UUID      `json:"patient_id"`
	Start     time.Time       `json:"date_time_start" binding:"required"`
	End       time.Time       `json:"date_time_end" binding:"required,gtfield=Start"`
}

type UpdateAppointmentRequest struct {
	Kind      *AppointmentKind `json:"type" binding:"omitempty,appointment_kind"`
	GroupID   *uuid.UUID       `json:"group_id"`
	PatientID *uuid.UUID       `json:"patient_id"`
	Start     *time.Time       `json:"date_time_start"`
	End       *time.Time       `json:"date_time_end"`
}
