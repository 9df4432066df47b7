package model

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus string

const (
	AttendanceNotStarted AttendanceStatus = "not-started"
	AttendancePresent    AttendanceStatus = "present"
	AttendanceAbsent     AttendanceStatus = "absent"
)

// VisitRow is one patient's record of a single appointment. A patient holds
// at most one row per appointment.
type VisitRow struct {
	AppointmentID uuid.UUID       `json:"appointment"`
	Date          time.Time       `json:"date"`
	Kind          AppointmentKind `json:"type"`
	Note          string          `json:"note"`
	AIInsights    []Insight       `json:"ai_insights"`
	Activities    []uuid.UUID     `json:"activities"`
}

type AttendanceRow struct {
	AppointmentID uuid.UUID        `json:"appointment"`
	Date          time.Time        `json:"date"`
	Status        AttendanceStatus `json:"status"`
	Progress      int              `json:"progress"`
}

type Material struct {
	AppointmentID uuid.UUID `json:"appointment"`
	ActivityID    uuid.UUID `json:"activity"`
	VisitDate     time.Time `json:"visit_date"`
	FileURL       string    `json:"file_url"`
	Filename      string    `json:"filename"`
}

type GoalEvent struct {
	ActivityName string    `json:"activity_name"`
	OnDate       time.Time `json:"on_date"`
}

type GoalProgress struct {
	Name       string      `json:"name"`
	Associated []GoalEvent `json:"associated"`
	Progress   int         `json:"progress"`
	Comment    string      `json:"comment"`
	StartDate  time.Time   `json:"start_date"`
	TargetDate *time.Time  `json:"target_date,omitempty"`
}

type Patient struct {
	Base
	Name         string          `json:"name"`
	Age          int             `json:"age,omitempty"`
	Address      string          `json:"address,omitempty"`
	Grade        string          `json:"grade"`
	PastHistory  []string        `json:"past_history"`
	AvatarURL    string          `json:"avatar_url,omitempty"`
	GroupID      *uuid.UUID      `json:"group,omitempty"`
	Appointments []uuid.UUID     `json:"appointments"`
	VisitHistory []VisitRow      `json:"visit_history"`
	Attendance   []AttendanceRow `json:"attendance"`
	Materials    []Material      `json:"materials"`
	Goals        []string        `json:"goals"`
	GoalProgress []GoalProgress  `json:"goal_progress"`
}

// VisitRows returns the rows recorded for an appointment.
func (p *Patient) VisitRows(appointmentID uuid.UUID) []VisitRow {
	var rows []VisitRow
	for _, row := range p.VisitHistory {
		if row.AppointmentID == appointmentID {
			rows = append(rows, row)
		}
	}
	return rows
}

type CreatePatientRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	Age         int        `json:"age" binding:"omitempty,min=0,max=150"`
	Address     string     `json:"address"`
	Grade       string     `json:"grade"`
	PastHistory []string   `json:"past_history"`
	AvatarURL   string     `json:"avatar_url" binding:"omitempty,url"`
	GroupID     *uuid.UUID `json:"group"`
	Goals       []string   `json:"goals"`
}

type UpdatePatientRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=1,max=200"`
	Age         *int      `json:"age" binding:"omitempty,min=0,max=150"`
	Address     *string   `json:"address"`
	Grade       *string   `json:"grade"`
	PastHistory *[]string `json:"past_history"`
	AvatarURL   *string   `json:"avatar_url" binding:"omitempty,url"`
}

type SetGroupRequest struct {
	GroupID *uuid.UUID `json:"group"`
}

type VisitRowRequest struct {
	AppointmentID uuid.UUID   `json:"appointment" binding:"required"`
	Date          time.Time   `json:"date" binding:"required"`
	Note          string      `json:"note"`
	AIInsights    []Insight   `json:"ai_insights"`
	Activities    []uuid.UUID `json:"activities"`
}

type GoalHistoryRequest struct {
	Goals        []string  `json:"goals" binding:"required,min=1"`
	ActivityName string    `json:"activity_name" binding:"required"`
	OnDate       time.Time `json:"on_date"`
}

type MaterialRequest struct {
	AppointmentID uuid.UUID `json:"appointment" binding:"required"`
	ActivityID    uuid.UUID `json:"activity" binding:"required"`
	FileURL       string    `json:"file_url" binding:"required,url"`
	Filename      string    `json:"filename" binding:"required"`
}
