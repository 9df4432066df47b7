package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

var (
	// ErrNotFound is returned when a keyed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate document")
)

// All repository interfaces in one file. Every mutation is a single-document
// (or single-filter) write that is safe to repeat. Methods taking one id
// return ErrNotFound when that document is missing; methods taking a slice
// of ids, matching by embedded reference or updating a visit row in place
// never do.
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		List(ctx context.Context, ownerID uuid.UUID) ([]*model.Patient, error)
		UpdateProfile(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		CountOwned(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error)
		ListIDsByGroup(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
		ListIDsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error)

		// Membership
		SetGroup(ctx context.Context, id uuid.UUID, groupID *uuid.UUID) error
		ClearGroup(ctx context.Context, ids []uuid.UUID, groupID uuid.UUID) (int64, error)
		AddAppointments(ctx context.Context, id uuid.UUID, appointmentIDs []uuid.UUID) error
		PullAppointments(ctx context.Context, id uuid.UUID, appointmentIDs []uuid.UUID) error
		LinkAppointment(ctx context.Context, ids []uuid.UUID, row model.AttendanceRow) error
		UnlinkAppointment(ctx context.Context, ids []uuid.UUID, appointmentID uuid.UUID) error

		// Visit history
		RemoveVisitRow(ctx context.Context, id, appointmentID uuid.UUID) error
		InsertVisitRow(ctx context.Context, id uuid.UUID, row model.VisitRow) (bool, error)
		PullVisitActivity(ctx context.Context, id, appointmentID, activityID uuid.UUID) error
		AddVisitActivity(ctx context.Context, id, appointmentID, activityID uuid.UUID) error
		PullActivity(ctx context.Context, ids []uuid.UUID, activityID uuid.UUID) error

		// Attendance
		RetimeAttendance(ctx context.Context, appointmentID uuid.UUID, date time.Time) (int64, error)

		// Goals and materials
		SetGoals(ctx context.Context, id uuid.UUID, goals []string) error
		SetGoalProgress(ctx context.Context, id uuid.UUID, progress []model.GoalProgress) error
		AppendGoalHistory(ctx context.Context, id uuid.UUID, goals []string, event model.GoalEvent) error
		RemoveMaterial(ctx context.Context, id, appointmentID, activityID uuid.UUID) error
		PushMaterial(ctx context.Context, id uuid.UUID, material model.Material) error
	}

	GroupRepository interface {
		Create(ctx context.Context, group *model.Group) error
		Get(ctx context.Context, id uuid.UUID) (*model.Group, error)
		List(ctx context.Context, ownerID uuid.UUID) ([]*model.Group, error)
		Delete(ctx context.Context, id uuid.UUID) (*model.Group, error)
		SetGoals(ctx context.Context, id uuid.UUID, goals []string) error
		AddPatient(ctx context.Context, id, patientID uuid.UUID) error
		RemovePatient(ctx context.Context, id, patientID uuid.UUID) error
		AddAppointment(ctx context.Context, id, appointmentID uuid.UUID) error
		RemoveAppointment(ctx context.Context, id, appointmentID uuid.UUID) error
		FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Group, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, ownerID uuid.UUID) ([]*model.Appointment, error)
		Delete(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateTarget(ctx context.Context, appointment *model.Appointment) error
		SetSchedule(ctx context.Context, id uuid.UUID, start, end time.Time) error
		CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error)
		ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Appointment, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		AddActivity(ctx context.Context, id, activityID uuid.UUID) error
		PullActivity(ctx context.Context, id, activityID uuid.UUID) error
		// LinkRecommendation sets the recommendation only when none is set and
		// returns ErrDuplicate otherwise.
		LinkRecommendation(ctx context.Context, id, recommendationID uuid.UUID) error
	}

	ActivityRepository interface {
		Create(ctx context.Context, activity *model.Activity) error
		Get(ctx context.Context, id uuid.UUID) (*model.Activity, error)
		Update(ctx context.Context, activity *model.Activity) error
		Delete(ctx context.Context, id uuid.UUID) error
		PullMember(ctx context.Context, patientID uuid.UUID) error
	}

	RecommendationRepository interface {
		Create(ctx context.Context, rec *model.Recommendation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Recommendation, error)
		DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Store bundles the document repositories the synchronization services need.
type Store struct {
	Patients        PatientRepository
	Groups          GroupRepository
	Appointments    AppointmentRepository
	Activities      ActivityRepository
	Recommendations RecommendationRepository
}
