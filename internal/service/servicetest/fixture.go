// Package servicetest wires every service on the in-memory store for tests.
package servicetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/repository/memory"
	"github.com/jwalitptl/practice-api/internal/service/activity"
	"github.com/jwalitptl/practice-api/internal/service/appointment"
	"github.com/jwalitptl/practice-api/internal/service/attendance"
	"github.com/jwalitptl/practice-api/internal/service/cascade"
	"github.com/jwalitptl/practice-api/internal/service/event"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	"github.com/jwalitptl/practice-api/internal/service/group"
	"github.com/jwalitptl/practice-api/internal/service/membership"
	"github.com/jwalitptl/practice-api/internal/service/patient"
	"github.com/jwalitptl/practice-api/internal/service/recommendation"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

// Generator returns Text (or Err) and records every prompt.
type Generator struct {
	mu      sync.Mutex
	Text    string
	Err     error
	Prompts []string
}

func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Text, nil
}

func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// Releaser records released URLs and fails with Err when set.
type Releaser struct {
	mu       sync.Mutex
	Err      error
	Released []string
}

func (r *Releaser) Release(_ context.Context, fileURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Released = append(r.Released, fileURL)
	return nil
}

type Fixture struct {
	Mem   *memory.Store
	Store repository.Store
	Owner uuid.UUID
	Start time.Time

	Generator *Generator
	Releaser  *Releaser
	Metrics   *metrics.Metrics
	Recorder  flow.Recorder

	Visits          *visit.Service
	Membership      *membership.Service
	Cascade         *cascade.Service
	Attendance      *attendance.Service
	Appointments    *appointment.Service
	Patients        *patient.Service
	Groups          *group.Service
	Activities      *activity.Service
	Recommendations *recommendation.Service
}

func New(t testing.TB) *Fixture {
	t.Helper()

	mem := memory.NewStore()
	store := mem.Repositories()
	log := logger.Nop()
	m := metrics.New("test")

	f := &Fixture{
		Mem:       mem,
		Store:     store,
		Owner:     uuid.New(),
		Start:     time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		Generator: &Generator{Text: "### Plan\n1. Play"},
		Releaser:  &Releaser{},
		Metrics:   m,
	}
	f.Recorder = flow.Recorder{
		Logger:  log,
		Metrics: m,
		Events:  event.NewService(mem.Outbox(), log),
	}

	f.Visits = visit.NewService(store, 4)
	f.Membership = membership.NewService(store, f.Recorder, 4)
	f.Cascade = cascade.NewService(store, f.Visits, f.Membership, f.Releaser, f.Recorder)
	f.Attendance = attendance.NewService(store, f.Recorder)
	f.Appointments = appointment.NewService(store, f.Visits, f.Cascade, f.Attendance, f.Recorder)
	f.Patients = patient.NewService(store, f.Membership, f.Visits, f.Cascade)
	f.Groups = group.NewService(store, f.Membership, f.Cascade)
	f.Activities = activity.NewService(store, f.Visits, f.Cascade, f.Generator, f.Recorder)
	f.Recommendations = recommendation.NewService(store, log)
	return f
}

// Patient creates a patient owned by the fixture owner.
func (f *Fixture) Patient(t testing.TB, name string) *model.Patient {
	t.Helper()
	p, err := f.Patients.Create(context.Background(), f.Owner, &model.CreatePatientRequest{Name: name})
	require.NoError(t, err)
	return p
}

// Group creates a group with the given members.
func (f *Fixture) Group(t testing.TB, name string, members ...uuid.UUID) *model.Group {
	t.Helper()
	g, _, err := f.Groups.Create(context.Background(), f.Owner, &model.CreateGroupRequest{
		Name:    name,
		Members: members,
	})
	require.NoError(t, err)
	return g
}

// GroupAppointment schedules a one hour group appointment offset hours after Start.
func (f *Fixture) GroupAppointment(t testing.TB, groupID uuid.UUID, offset int) *model.Appointment {
	t.Helper()
	start := f.Start.Add(time.Duration(offset) * time.Hour)
	appt, _, err := f.Appointments.Create(context.Background(), f.Owner, &model.CreateAppointmentRequest{
		Kind:    model.AppointmentKindGroup,
		GroupID: &groupID,
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)
	return appt
}

// IndividualAppointment schedules a one hour appointment for one patient.
func (f *Fixture) IndividualAppointment(t testing.TB, patientID uuid.UUID, offset int) *model.Appointment {
	t.Helper()
	start := f.Start.Add(time.Duration(offset) * time.Hour)
	appt, _, err := f.Appointments.Create(context.Background(), f.Owner, &model.CreateAppointmentRequest{
		Kind:      model.AppointmentKindIndividual,
		PatientID: &patientID,
		Start:     start,
		End:       start.Add(time.Hour),
	})
	require.NoError(t, err)
	return appt
}

// LoadPatient reads a patient straight from the store.
func (f *Fixture) LoadPatient(t testing.TB, id uuid.UUID) *model.Patient {
	t.Helper()
	p, err := f.Store.Patients.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *Fixture) LoadGroup(t testing.TB, id uuid.UUID) *model.Group {
	t.Helper()
	g, err := f.Store.Groups.Get(context.Background(), id)
	require.NoError(t, err)
	return g
}

func (f *Fixture) LoadAppointment(t testing.TB, id uuid.UUID) *model.Appointment {
	t.Helper()
	a, err := f.Store.Appointments.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

// EventTypes lists the outbox event types in insertion order.
func (f *Fixture) EventTypes() []string {
	events := f.Mem.OutboxEvents()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}
