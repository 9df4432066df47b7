// Package activity drafts, generates and maintains therapy activities
// attached to appointments.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/cascade"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/generator"
)

const OpGenerateActivity = "generate_activity"

// Generated is the outcome of a full generation.
type Generated struct {
	Plan     string          `json:"plan"`
	Activity *model.Activity `json:"activity"`
	Report   *model.Report   `json:"report"`
}

type Service struct {
	store     repository.Store
	visits    *visit.Service
	cascade   *cascade.Service
	generator generator.Generator
	recorder  flow.Recorder
}

func NewService(
	store repository.Store,
	visits *visit.Service,
	cascadeSvc *cascade.Service,
	gen generator.Generator,
	recorder flow.Recorder,
) *Service {
	return &Service{
		store:     store,
		visits:    visits,
		cascade:   cascadeSvc,
		generator: gen,
		recorder:  recorder,
	}
}

func (s *Service) appointment(ctx context.Context, ownerID, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.store.Appointments.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}
	if appt.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	return appt, nil
}

// notes renders the recommendation insights for the selected members. A
// missing recommendation yields placeholders only.
func (s *Service) notes(ctx context.Context, appt *model.Appointment, members []uuid.UUID) (string, error) {
	var rec *model.Recommendation
	if appt.Recommendation != nil {
		r, err := s.store.Recommendations.Get(ctx, *appt.Recommendation)
		switch {
		case err == nil:
			rec = r
		case !errors.Is(err, repository.ErrNotFound):
			return "", apperrors.NewInternal(err)
		}
	}
	return visit.ComposeNotes(rec, members), nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", apperrors.NewUpstream("generator", err)
	}
	return text, nil
}

// Draft asks the generator for a structured suggestion. Nothing is stored.
func (s *Service) Draft(ctx context.Context, ownerID, appointmentID uuid.UUID, req *model.GenerateActivityRequest) (*model.ActivityDraft, error) {
	appt, err := s.appointment(ctx, ownerID, appointmentID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes(ctx, appt, req.Members)
	if err != nil {
		return nil, err
	}
	raw, err := s.generate(ctx, draftPrompt(req, notes))
	if err != nil {
		return nil, err
	}
	var draft model.ActivityDraft
	if err := json.Unmarshal([]byte(generator.StripCodeFence(raw)), &draft); err != nil {
		return nil, apperrors.NewUpstream("generator", fmt.Errorf("draft is not valid JSON: %w", err))
	}
	draft.Materials = lo.Compact(draft.Materials)
	return &draft, nil
}

// Generate produces a plan and stores it as a new activity referenced by the
// appointment and every participant's visit row. No document is written
// unless the generator succeeds.
func (s *Service) Generate(ctx context.Context, ownerID, appointmentID uuid.UUID, req *model.GenerateActivityRequest) (*Generated, error) {
	appt, err := s.appointment(ctx, ownerID, appointmentID)
	if err != nil {
		return nil, err
	}
	notes, err := s.notes(ctx, appt, req.Members)
	if err != nil {
		return nil, err
	}
	plan, err := s.generate(ctx, planPrompt(req, notes))
	if err != nil {
		return nil, err
	}
	plan = strings.TrimSpace(plan)

	started := time.Now()
	act := &model.Activity{
		Name:        lo.Ternary(req.Name != "", req.Name, defaultName),
		Description: plan,
		Materials:   orEmpty(req.Materials),
		Members:     lo.Uniq(orEmpty(req.Members)),
		Goals:       orEmpty(req.Goals),
	}
	act.OwnerID = ownerID
	act.Touch(time.Now().UTC())
	if err := s.store.Activities.Create(ctx, act); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	report := model.NewReport(OpGenerateActivity, act.ID)
	report.Applied("insert_activity", act.Name)
	out := &Generated{Plan: plan, Activity: act, Report: report}

	if err := s.store.Appointments.AddActivity(ctx, appt.ID, act.ID); err != nil {
		report.Fail("add_to_appointment", err)
		return out, s.recorder.Finish(ctx, report, model.EventActivityAttached, started)
	}
	report.Applied("add_to_appointment", appt.ID.String())

	child, _ := s.visits.AttachActivity(ctx, appt, act.ID)
	report.Nest(child)
	return out, s.recorder.Finish(ctx, report, model.EventActivityAttached, started)
}

// Update rewrites the activity document. References hold only the id so
// nothing else changes.
func (s *Service) Update(ctx context.Context, ownerID, appointmentID, activityID uuid.UUID, req *model.UpdateActivityRequest) (*model.Activity, error) {
	appt, err := s.appointment(ctx, ownerID, appointmentID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(appt.Activities, activityID) {
		return nil, apperrors.NewNotFound("activity", nil)
	}
	act, err := s.store.Activities.Get(ctx, activityID)
	if err != nil {
		return nil, flow.Lookup("activity", err)
	}
	if req.Name != nil {
		act.Name = *req.Name
	}
	if req.Description != nil {
		act.Description = *req.Description
	}
	if req.Materials != nil {
		act.Materials = orEmpty(*req.Materials)
	}
	if req.Goals != nil {
		act.Goals = orEmpty(*req.Goals)
	}
	act.UpdatedAt = time.Now().UTC()
	if err := s.store.Activities.Update(ctx, act); err != nil {
		return nil, flow.Lookup("activity", err)
	}
	return act, nil
}

func (s *Service) Get(ctx context.Context, ownerID, activityID uuid.UUID) (*model.Activity, error) {
	act, err := s.store.Activities.Get(ctx, activityID)
	if err != nil {
		return nil, flow.Lookup("activity", err)
	}
	if act.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("activity", nil)
	}
	return act, nil
}

// Delete removes the activity from the appointment and every visit row, then
// deletes the document.
func (s *Service) Delete(ctx context.Context, ownerID, appointmentID, activityID uuid.UUID) (*model.Report, error) {
	if _, err := s.appointment(ctx, ownerID, appointmentID); err != nil {
		return nil, err
	}
	return s.cascade.DeleteActivity(ctx, appointmentID, activityID)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
