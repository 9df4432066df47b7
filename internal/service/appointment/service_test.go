package appointment_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/appointment"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func TestCreate_GroupLinksEveryMember(t *testing.T) {
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)

	a := f.GroupAppointment(t, g.ID, 0)
	assert.Equal(t, model.AppointmentStatusUpcoming, a.Status)
	assert.Equal(t, []uuid.UUID{a.ID}, f.LoadGroup(t, g.ID).Appointments)
	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		p := f.LoadPatient(t, id)
		assert.Equal(t, []uuid.UUID{a.ID}, p.Appointments)
		require.Len(t, p.Attendance, 1)
		assert.Equal(t, model.AttendanceNotStarted, p.Attendance[0].Status)
		assert.True(t, p.Attendance[0].Date.Equal(a.Start))
	}
	assert.Contains(t, f.EventTypes(), model.EventAppointmentCreated)
}

func TestCreate_RejectsBadTargets(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	g := f.Group(t, "Tuesday", p.ID)
	missing := uuid.New()
	start := f.Start

	tests := []struct {
		name string
		req  model.CreateAppointmentRequest
		code apperrors.ErrorCode
	}{
		{
			name: "group kind with patient",
			req:  model.CreateAppointmentRequest{Kind: model.AppointmentKindGroup, PatientID: &p.ID, Start: start, End: start.Add(time.Hour)},
			code: apperrors.ErrInvariantViolation,
		},
		{
			name: "individual kind with both targets",
			req:  model.CreateAppointmentRequest{Kind: model.AppointmentKindIndividual, PatientID: &p.ID, GroupID: &g.ID, Start: start, End: start.Add(time.Hour)},
			code: apperrors.ErrInvariantViolation,
		},
		{
			name: "ends before start",
			req:  model.CreateAppointmentRequest{Kind: model.AppointmentKindIndividual, PatientID: &p.ID, Start: start, End: start},
			code: apperrors.ErrInvariantViolation,
		},
		{
			name: "unknown group",
			req:  model.CreateAppointmentRequest{Kind: model.AppointmentKindGroup, GroupID: &missing, Start: start, End: start.Add(time.Hour)},
			code: apperrors.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.Appointments.Create(ctx, f.Owner, &tt.req)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
		})
	}

	_, _, err := f.Appointments.Create(ctx, uuid.New(), &model.CreateAppointmentRequest{
		Kind: model.AppointmentKindIndividual, PatientID: &p.ID, Start: start, End: start.Add(time.Hour),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvariantViolation))

	appts, err := f.Store.Appointments.List(ctx, f.Owner)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestCreateBulk(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	reqs := make([]*model.CreateAppointmentRequest, 3)
	for i := range reqs {
		start := f.Start.Add(time.Duration(i) * 24 * time.Hour)
		reqs[i] = &model.CreateAppointmentRequest{
			Kind: model.AppointmentKindIndividual, PatientID: &p.ID, Start: start, End: start.Add(time.Hour),
		}
	}

	created, err := f.Appointments.CreateBulk(ctx, f.Owner, reqs)
	require.NoError(t, err)
	assert.Len(t, created, 3)
	assert.Len(t, f.LoadPatient(t, p.ID).Appointments, 3)

	_, err = f.Appointments.CreateBulk(ctx, f.Owner, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	tooMany := make([]*model.CreateAppointmentRequest, appointment.MaxBulkAppointments+1)
	_, err = f.Appointments.CreateBulk(ctx, f.Owner, tooMany)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestGet_DerivesStatus(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	// A past slot is written straight to the store; status is never trusted.
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, f.Store.Appointments.SetSchedule(ctx, a.ID, past, past.Add(time.Hour)))

	got, err := f.Appointments.Get(ctx, f.Owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)

	_, err = f.Appointments.Get(ctx, uuid.New(), a.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdate_RetargetsToAnotherGroup(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	ga := f.Group(t, "Tuesday", p1.ID)
	gb := f.Group(t, "Thursday", p2.ID)
	keep := f.GroupAppointment(t, ga.ID, 0)
	a := f.GroupAppointment(t, ga.ID, 2)

	got, err := f.Appointments.Update(ctx, f.Owner, a.ID, &model.UpdateAppointmentRequest{GroupID: &gb.ID})
	require.NoError(t, err)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, gb.ID, *got.GroupID)

	assert.Equal(t, []uuid.UUID{keep.ID}, f.LoadGroup(t, ga.ID).Appointments)
	assert.Equal(t, []uuid.UUID{a.ID}, f.LoadGroup(t, gb.ID).Appointments)
	assert.Equal(t, []uuid.UUID{keep.ID}, f.LoadPatient(t, p1.ID).Appointments)
	assert.Equal(t, []uuid.UUID{a.ID}, f.LoadPatient(t, p2.ID).Appointments)
}

func TestUpdate_GroupToIndividual(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)
	a := f.GroupAppointment(t, g.ID, 0)

	kind := model.AppointmentKindIndividual
	got, err := f.Appointments.Update(ctx, f.Owner, a.ID, &model.UpdateAppointmentRequest{Kind: &kind, PatientID: &p2.ID})
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
	require.NotNil(t, got.PatientID)
	assert.Equal(t, p2.ID, *got.PatientID)

	assert.Empty(t, f.LoadPatient(t, p1.ID).Appointments)
	assert.Equal(t, []uuid.UUID{a.ID}, f.LoadPatient(t, p2.ID).Appointments)
	// The old group keeps existing even with nothing scheduled.
	assert.Empty(t, f.LoadGroup(t, g.ID).Appointments)
}

func TestUpdate_KindWithoutTarget(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	g := f.Group(t, "Tuesday", p.ID)
	a := f.GroupAppointment(t, g.ID, 0)

	kind := model.AppointmentKindIndividual
	_, err := f.Appointments.Update(ctx, f.Owner, a.ID, &model.UpdateAppointmentRequest{Kind: &kind})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvariantViolation))
	assert.Equal(t, []uuid.UUID{a.ID}, f.LoadPatient(t, p.ID).Appointments)
}

func TestUpdate_Retime(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)
	start := a.Start.Add(24 * time.Hour)
	end := start.Add(90 * time.Minute)

	got, err := f.Appointments.Update(ctx, f.Owner, a.ID, &model.UpdateAppointmentRequest{Start: &start, End: &end})
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(start))
	assert.True(t, got.End.Equal(end))
	assert.True(t, f.LoadPatient(t, p.ID).Attendance[0].Date.Equal(start))
}

func TestDelete_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	_, err := f.Appointments.Delete(ctx, uuid.New(), a.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.Appointments.Delete(ctx, f.Owner, a.ID)
	require.NoError(t, err)
	_, err = f.Store.Appointments.Get(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.LoadPatient(t, p.ID).Appointments)
}
