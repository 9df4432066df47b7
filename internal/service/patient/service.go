package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/cascade"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	"github.com/jwalitptl/practice-api/internal/service/membership"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type Service struct {
	store      repository.Store
	membership *membership.Service
	visits     *visit.Service
	cascade    *cascade.Service
	now        func() time.Time
}

func NewService(store repository.Store, membershipSvc *membership.Service, visits *visit.Service, cascadeSvc *cascade.Service) *Service {
	return &Service{
		store:      store,
		membership: membershipSvc,
		visits:     visits,
		cascade:    cascadeSvc,
		now:        time.Now,
	}
}

// Create inserts the patient and, when a group is given, joins it.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error) {
	p := &model.Patient{
		Name:         req.Name,
		Age:          req.Age,
		Address:      req.Address,
		Grade:        req.Grade,
		PastHistory:  req.PastHistory,
		AvatarURL:    req.AvatarURL,
		Goals:        lo.Uniq(req.Goals),
		Appointments: []uuid.UUID{},
		VisitHistory: []model.VisitRow{},
		Attendance:   []model.AttendanceRow{},
		Materials:    []model.Material{},
		GoalProgress: []model.GoalProgress{},
	}
	p.OwnerID = ownerID
	p.Touch(s.now().UTC())
	if err := s.store.Patients.Create(ctx, p); err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if req.GroupID != nil {
		if _, err := s.membership.SetGroupMembership(ctx, p.ID, req.GroupID); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, ownerID, p.ID)
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Patient, error) {
	p, err := s.store.Patients.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("patient", err)
	}
	if p.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Patient, error) {
	patients, err := s.store.Patients.List(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return patients, nil
}

func (s *Service) UpdateProfile(ctx context.Context, ownerID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Age != nil {
		p.Age = *req.Age
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Grade != nil {
		p.Grade = *req.Grade
	}
	if req.PastHistory != nil {
		p.PastHistory = *req.PastHistory
	}
	if req.AvatarURL != nil {
		p.AvatarURL = *req.AvatarURL
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Patients.UpdateProfile(ctx, p); err != nil {
		return nil, flow.Lookup("patient", err)
	}
	return p, nil
}

// SetGroup moves the patient to another group, or out of its group.
func (s *Service) SetGroup(ctx context.Context, ownerID, id uuid.UUID, req *model.SetGroupRequest) (*model.Report, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.membership.SetGroupMembership(ctx, id, req.GroupID)
}

func (s *Service) SetGoals(ctx context.Context, ownerID, id uuid.UUID, goals []string) ([]string, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	goals = lo.Uniq(goals)
	if err := s.store.Patients.SetGoals(ctx, id, goals); err != nil {
		return nil, flow.Lookup("patient", err)
	}
	return goals, nil
}

// SetGoalProgress replaces the whole goal progress list.
func (s *Service) SetGoalProgress(ctx context.Context, ownerID, id uuid.UUID, items []model.GoalProgress) ([]model.GoalProgress, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for i := range items {
		if items[i].StartDate.IsZero() {
			items[i].StartDate = now
		}
		if items[i].Associated == nil {
			items[i].Associated = []model.GoalEvent{}
		}
		for j := range items[i].Associated {
			if items[i].Associated[j].OnDate.IsZero() {
				items[i].Associated[j].OnDate = now
			}
		}
	}
	if err := s.store.Patients.SetGoalProgress(ctx, id, items); err != nil {
		return nil, flow.Lookup("patient", err)
	}
	return items, nil
}

// AddGoalHistory appends an activity event to each named goal the patient
// tracks. Unknown goal names are ignored.
func (s *Service) AddGoalHistory(ctx context.Context, ownerID, id uuid.UUID, req *model.GoalHistoryRequest) ([]model.GoalProgress, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	event := model.GoalEvent{ActivityName: req.ActivityName, OnDate: req.OnDate}
	if event.OnDate.IsZero() {
		event.OnDate = s.now().UTC()
	}
	if err := s.store.Patients.AppendGoalHistory(ctx, id, lo.Uniq(req.Goals), event); err != nil {
		return nil, flow.Lookup("patient", err)
	}
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return p.GoalProgress, nil
}

// AddVisitHistory records the patient's row for an appointment, replacing
// any earlier row for it.
func (s *Service) AddVisitHistory(ctx context.Context, ownerID, id uuid.UUID, req *model.VisitRowRequest) (*model.Patient, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	appt, err := s.store.Appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}
	if appt.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	row := model.VisitRow{
		AppointmentID: appt.ID,
		Date:          req.Date,
		Kind:          appt.Kind,
		Note:          req.Note,
		AIInsights:    req.AIInsights,
		Activities:    req.Activities,
	}
	if err := s.visits.UpsertVisitRow(ctx, id, row); err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

// AddMaterial stores the file reference for an (appointment, activity) pair,
// replacing the previous one.
func (s *Service) AddMaterial(ctx context.Context, ownerID, id uuid.UUID, req *model.MaterialRequest) (*model.Material, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	appt, err := s.store.Appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}
	m := model.Material{
		AppointmentID: req.AppointmentID,
		ActivityID:    req.ActivityID,
		VisitDate:     appt.Start,
		FileURL:       req.FileURL,
		Filename:      req.Filename,
	}
	if err := s.store.Patients.RemoveMaterial(ctx, id, m.AppointmentID, m.ActivityID); err != nil {
		return nil, flow.Lookup("patient", err)
	}
	if err := s.store.Patients.PushMaterial(ctx, id, m); err != nil {
		return nil, flow.Lookup("patient", err)
	}
	return &m, nil
}

// ListMaterials filters the patient's materials by appointment and activity
// when those are set.
func (s *Service) ListMaterials(ctx context.Context, ownerID, id uuid.UUID, appointmentID, activityID *uuid.UUID) ([]model.Material, error) {
	p, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return lo.Filter(p.Materials, func(m model.Material, _ int) bool {
		return (appointmentID == nil || m.AppointmentID == *appointmentID) &&
			(activityID == nil || m.ActivityID == *activityID)
	}), nil
}

// Delete runs the patient cascade.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Report, error) {
	p, err := s.store.Patients.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewNotFound("patient", err)
	case err != nil:
		return nil, apperrors.NewInternal(err)
	case p.OwnerID != ownerID:
		return nil, apperrors.NewNotFound("patient", nil)
	}
	return s.cascade.DeletePatient(ctx, id)
}
