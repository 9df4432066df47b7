// Package memory is an in-process document store with the same update
// semantics as the Mongo repositories. Every exported method locks the whole
// store, so each call behaves like one single-document write.
package memory

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type Store struct {
	mu              sync.Mutex
	patients        map[uuid.UUID]*model.Patient
	groups          map[uuid.UUID]*model.Group
	appointments    map[uuid.UUID]*model.Appointment
	activities      map[uuid.UUID]*model.Activity
	recommendations map[uuid.UUID]*model.Recommendation
	outbox          []*model.OutboxEvent
	faults          map[string]error
}

func NewStore() *Store {
	return &Store{
		patients:        make(map[uuid.UUID]*model.Patient),
		groups:          make(map[uuid.UUID]*model.Group),
		appointments:    make(map[uuid.UUID]*model.Appointment),
		activities:      make(map[uuid.UUID]*model.Activity),
		recommendations: make(map[uuid.UUID]*model.Recommendation),
		faults:          make(map[string]error),
	}
}

// Repositories returns the store wired as the repository bundle.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Patients:        &patientRepo{s},
		Groups:          &groupRepo{s},
		Appointments:    &appointmentRepo{s},
		Activities:      &activityRepo{s},
		Recommendations: &recommendationRepo{s},
	}
}

// Outbox returns the in-process event outbox.
func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepo{s}
}

// InjectFault makes every call of op ("patients.UnlinkAppointment", ...)
// fail with err until ClearFaults is called.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]error)
}

// lock acquires the store and reports an injected fault for op.
func (s *Store) lock(op string) error {
	s.mu.Lock()
	if err, ok := s.faults[op]; ok {
		s.mu.Unlock()
		return err
	}
	return nil
}

func addToSet(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func pull(ids []uuid.UUID, remove ...uuid.UUID) []uuid.UUID {
	return slices.DeleteFunc(ids, func(id uuid.UUID) bool {
		return slices.Contains(remove, id)
	})
}

func cloneIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func clonePatient(p *model.Patient) *model.Patient {
	c := *p
	c.PastHistory = slices.Clone(p.PastHistory)
	c.GroupID = cloneIDPtr(p.GroupID)
	c.Appointments = slices.Clone(p.Appointments)
	c.VisitHistory = make([]model.VisitRow, len(p.VisitHistory))
	for i, row := range p.VisitHistory {
		row.AIInsights = slices.Clone(row.AIInsights)
		row.Activities = slices.Clone(row.Activities)
		c.VisitHistory[i] = row
	}
	c.Attendance = slices.Clone(p.Attendance)
	c.Materials = slices.Clone(p.Materials)
	c.Goals = slices.Clone(p.Goals)
	c.GoalProgress = make([]model.GoalProgress, len(p.GoalProgress))
	for i, g := range p.GoalProgress {
		g.Associated = slices.Clone(g.Associated)
		c.GoalProgress[i] = g
	}
	return &c
}

func cloneGroup(g *model.Group) *model.Group {
	c := *g
	c.Patients = slices.Clone(g.Patients)
	c.Goals = slices.Clone(g.Goals)
	c.Appointments = slices.Clone(g.Appointments)
	return &c
}

func cloneAppointment(a *model.Appointment) *model.Appointment {
	c := *a
	c.GroupID = cloneIDPtr(a.GroupID)
	c.PatientID = cloneIDPtr(a.PatientID)
	c.Recommendation = cloneIDPtr(a.Recommendation)
	c.Activities = slices.Clone(a.Activities)
	c.AIInsights = slices.Clone(a.AIInsights)
	return &c
}

func cloneActivity(a *model.Activity) *model.Activity {
	c := *a
	c.Materials = slices.Clone(a.Materials)
	c.Members = slices.Clone(a.Members)
	c.Goals = slices.Clone(a.Goals)
	return &c
}

func cloneRecommendation(r *model.Recommendation) *model.Recommendation {
	c := *r
	c.GroupInsights = slices.Clone(r.GroupInsights)
	c.IndividualInsights = make([]model.IndividualInsight, len(r.IndividualInsights))
	for i, ind := range r.IndividualInsights {
		ind.Insights = slices.Clone(ind.Insights)
		c.IndividualInsights[i] = ind
	}
	c.Materials = slices.Clone(r.Materials)
	return &c
}
