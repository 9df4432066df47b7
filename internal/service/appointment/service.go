package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/attendance"
	"github.com/jwalitptl/practice-api/internal/service/cascade"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const (
	OpCreateAppointment = "create_appointment"
	OpRetarget          = "retarget_appointment"

	MaxBulkAppointments = 100
)

type Service struct {
	store      repository.Store
	visits     *visit.Service
	cascade    *cascade.Service
	attendance *attendance.Service
	recorder   flow.Recorder
	now        func() time.Time
}

func NewService(
	store repository.Store,
	visits *visit.Service,
	cascadeSvc *cascade.Service,
	attendanceSvc *attendance.Service,
	recorder flow.Recorder,
) *Service {
	return &Service{
		store:      store,
		visits:     visits,
		cascade:    cascadeSvc,
		attendance: attendanceSvc,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Create inserts the appointment and links it into its group and every
// participant, adding a not-started attendance row for each.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, *model.Report, error) {
	started := time.Now()
	appt := &model.Appointment{
		Kind:       req.Kind,
		GroupID:    req.GroupID,
		PatientID:  req.PatientID,
		Start:      req.Start,
		End:        req.End,
		Activities: []uuid.UUID{},
	}
	appt.OwnerID = ownerID
	if err := s.checkTarget(ctx, appt); err != nil {
		return nil, nil, err
	}

	appt.Touch(s.now().UTC())
	appt.Refresh(s.now())
	if err := s.store.Appointments.Create(ctx, appt); err != nil {
		return nil, nil, apperrors.NewInternal(err)
	}

	report := model.NewReport(OpCreateAppointment, appt.ID)
	report.Applied("insert_appointment", string(appt.Kind))
	s.link(ctx, report, appt)
	return appt, report, s.recorder.Finish(ctx, report, model.EventAppointmentCreated, started)
}

// CreateBulk creates each appointment in order and stops at the first error.
func (s *Service) CreateBulk(ctx context.Context, ownerID uuid.UUID, reqs []*model.CreateAppointmentRequest) ([]*model.Appointment, error) {
	if len(reqs) == 0 {
		return nil, apperrors.NewBadRequest("appointments required", nil)
	}
	if len(reqs) > MaxBulkAppointments {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("at most %d appointments per request", MaxBulkAppointments), nil)
	}
	created := make([]*model.Appointment, 0, len(reqs))
	for i, req := range reqs {
		appt, _, err := s.Create(ctx, ownerID, req)
		if err != nil {
			return created, fmt.Errorf("appointment %d: %w", i, err)
		}
		created = append(created, appt)
	}
	return created, nil
}

// checkTarget validates kind and target and that the target belongs to owner.
func (s *Service) checkTarget(ctx context.Context, appt *model.Appointment) error {
	if err := appt.ValidateTarget(); err != nil {
		return apperrors.NewInvariantViolation(err.Error(), nil)
	}
	var owner uuid.UUID
	if appt.GroupID != nil {
		group, err := s.store.Groups.Get(ctx, *appt.GroupID)
		if err != nil {
			return flow.Lookup("group", err)
		}
		owner = group.OwnerID
	} else {
		patient, err := s.store.Patients.Get(ctx, *appt.PatientID)
		if err != nil {
			return flow.Lookup("patient", err)
		}
		owner = patient.OwnerID
	}
	if owner != appt.OwnerID {
		return apperrors.NewInvariantViolation("appointment target belongs to a different owner", nil)
	}
	return nil
}

func (s *Service) link(ctx context.Context, report *model.Report, appt *model.Appointment) {
	if appt.GroupID != nil {
		if err := s.store.Groups.AddAppointment(ctx, *appt.GroupID, appt.ID); err != nil {
			report.Fail("link_group", err)
			return
		}
		report.Applied("link_group", appt.GroupID.String())
	} else {
		report.Skipped("link_group", "individual appointment")
	}

	participants, err := s.visits.ResolveParticipants(ctx, appt)
	if err != nil {
		report.Fail("link_participants", err)
		return
	}
	row := model.AttendanceRow{
		AppointmentID: appt.ID,
		Date:          appt.Start,
		Status:        model.AttendanceNotStarted,
	}
	if err := s.store.Patients.LinkAppointment(ctx, participants, row); err != nil {
		report.Fail("link_participants", err)
		return
	}
	report.Applied("link_participants", fmt.Sprintf("%d patients", len(participants)))
}

func (s *Service) unlink(ctx context.Context, report *model.Report, appt *model.Appointment) {
	if appt.GroupID != nil {
		err := s.store.Groups.RemoveAppointment(ctx, *appt.GroupID, appt.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			report.Skipped("unlink_group", "group no longer exists")
		case err != nil:
			report.Fail("unlink_group", err)
			return
		default:
			report.Applied("unlink_group", appt.GroupID.String())
		}
	}
	participants, err := s.visits.ResolveParticipants(ctx, appt)
	if err != nil {
		report.Fail("unlink_participants", err)
		return
	}
	if err := s.store.Patients.UnlinkAppointment(ctx, participants, appt.ID); err != nil {
		report.Fail("unlink_participants", err)
		return
	}
	report.Applied("unlink_participants", fmt.Sprintf("%d patients", len(participants)))
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.store.Appointments.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}
	if appt.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	return appt.Refresh(s.now()), nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Appointment, error) {
	appts, err := s.store.Appointments.List(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	now := s.now()
	for _, a := range appts {
		a.Refresh(now)
	}
	return appts, nil
}

// Update switches the appointment target and/or moves it in time. A target
// change unlinks the old group and participants before linking the new ones.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	current, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Kind != nil {
		next.Kind = *req.Kind
	}
	if req.Kind != nil || req.GroupID != nil || req.PatientID != nil {
		switch next.Kind {
		case model.AppointmentKindGroup:
			if req.GroupID != nil {
				next.GroupID = req.GroupID
			}
			next.PatientID = nil
		case model.AppointmentKindIndividual:
			if req.PatientID != nil {
				next.PatientID = req.PatientID
			}
			next.GroupID = nil
		}
	}
	if retargeted(current, &next) {
		if err := s.retarget(ctx, current, &next); err != nil {
			return nil, err
		}
	}

	if req.Start != nil || req.End != nil {
		start, end := current.Start, time.Time{}
		if req.Start != nil {
			start = *req.Start
		}
		if req.End != nil {
			end = *req.End
		}
		if _, err := s.attendance.RetimeAppointment(ctx, id, start, end); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, ownerID, id)
}

func retargeted(a, b *model.Appointment) bool {
	same := func(x, y *uuid.UUID) bool {
		return (x == nil && y == nil) || (x != nil && y != nil && *x == *y)
	}
	return a.Kind != b.Kind || !same(a.GroupID, b.GroupID) || !same(a.PatientID, b.PatientID)
}

func (s *Service) retarget(ctx context.Context, current, next *model.Appointment) error {
	started := time.Now()
	if err := s.checkTarget(ctx, next); err != nil {
		return err
	}
	report := model.NewReport(OpRetarget, current.ID)
	s.unlink(ctx, report, current)
	if hasFailed(report) {
		return s.recorder.Finish(ctx, report, model.EventAppointmentRetarget, started)
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.store.Appointments.UpdateTarget(ctx, next); err != nil {
		report.Fail("update_target", err)
		return s.recorder.Finish(ctx, report, model.EventAppointmentRetarget, started)
	}
	report.Applied("update_target", string(next.Kind))
	s.link(ctx, report, next)
	return s.recorder.Finish(ctx, report, model.EventAppointmentRetarget, started)
}

func hasFailed(r *model.Report) bool {
	_, failed := r.Failure()
	return failed
}

// Delete runs the appointment cascade. An appointment already gone is still
// passed through so an interrupted cascade can be finished.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Report, error) {
	appt, err := s.store.Appointments.Get(ctx, id)
	switch {
	case err == nil:
		if appt.OwnerID != ownerID {
			return nil, apperrors.NewNotFound("appointment", nil)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewInternal(err)
	}
	return s.cascade.DeleteAppointment(ctx, id)
}
