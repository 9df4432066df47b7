package patient_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func TestCreate_JoinsGroup(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	anchor := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", anchor.ID)
	a := f.GroupAppointment(t, g.ID, 0)

	p, err := f.Patients.Create(ctx, f.Owner, &model.CreatePatientRequest{
		Name:    "Ana",
		GroupID: &g.ID,
		Goals:   []string{"greetings", "greetings"},
	})
	require.NoError(t, err)
	require.NotNil(t, p.GroupID)
	assert.Equal(t, g.ID, *p.GroupID)
	assert.Equal(t, []uuid.UUID{a.ID}, p.Appointments)
	assert.Equal(t, []string{"greetings"}, p.Goals)
	assert.Contains(t, f.LoadGroup(t, g.ID).Patients, p.ID)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")

	grade := "3rd"
	got, err := f.Patients.UpdateProfile(ctx, f.Owner, p.ID, &model.UpdatePatientRequest{Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, grade, f.LoadPatient(t, p.ID).Grade)

	_, err = f.Patients.UpdateProfile(ctx, uuid.New(), p.ID, &model.UpdatePatientRequest{Grade: &grade})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSetGroup(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	g := f.Group(t, "Tuesday", f.Patient(t, "Ben").ID)

	_, err := f.Patients.SetGroup(ctx, f.Owner, p.ID, &model.SetGroupRequest{GroupID: &g.ID})
	require.NoError(t, err)
	assert.Contains(t, f.LoadGroup(t, g.ID).Patients, p.ID)

	_, err = f.Patients.SetGroup(ctx, f.Owner, p.ID, &model.SetGroupRequest{})
	require.NoError(t, err)
	assert.Nil(t, f.LoadPatient(t, p.ID).GroupID)
	assert.NotContains(t, f.LoadGroup(t, g.ID).Patients, p.ID)
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")

	goals, err := f.Patients.SetGoals(ctx, f.Owner, p.ID, []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, goals)

	progress, err := f.Patients.SetGoalProgress(ctx, f.Owner, p.ID, []model.GoalProgress{
		{Name: "a", Progress: 20},
		{Name: "b", Progress: 50},
	})
	require.NoError(t, err)
	for _, item := range progress {
		assert.False(t, item.StartDate.IsZero())
		assert.NotNil(t, item.Associated)
	}

	on := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	progress, err = f.Patients.AddGoalHistory(ctx, f.Owner, p.ID, &model.GoalHistoryRequest{
		Goals:        []string{"a", "unknown"},
		ActivityName: "Bubbles",
		OnDate:       on,
	})
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, []model.GoalEvent{{ActivityName: "Bubbles", OnDate: on}}, progress[0].Associated)
	assert.Empty(t, progress[1].Associated)
}

func TestAddVisitHistory_ReplacesRow(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	for _, note := range []string{"first", "second"} {
		_, err := f.Patients.AddVisitHistory(ctx, f.Owner, p.ID, &model.VisitRowRequest{
			AppointmentID: a.ID,
			Date:          a.Start,
			Note:          note,
		})
		require.NoError(t, err)
	}
	rows := f.LoadPatient(t, p.ID).VisitRows(a.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Note)
	assert.Equal(t, model.AppointmentKindIndividual, rows[0].Kind)

	_, err := f.Patients.AddVisitHistory(ctx, f.Owner, p.ID, &model.VisitRowRequest{AppointmentID: uuid.New(), Date: a.Start})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMaterials(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)
	act1, act2 := uuid.New(), uuid.New()

	for _, req := range []model.MaterialRequest{
		{AppointmentID: a.ID, ActivityID: act1, FileURL: "https://cdn.example.com/1.pdf", Filename: "1.pdf"},
		{AppointmentID: a.ID, ActivityID: act1, FileURL: "https://cdn.example.com/1b.pdf", Filename: "1b.pdf"},
		{AppointmentID: a.ID, ActivityID: act2, FileURL: "https://cdn.example.com/2.pdf", Filename: "2.pdf"},
	} {
		m, err := f.Patients.AddMaterial(ctx, f.Owner, p.ID, &req)
		require.NoError(t, err)
		assert.True(t, m.VisitDate.Equal(a.Start))
	}

	all, err := f.Patients.ListMaterials(ctx, f.Owner, p.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := f.Patients.ListMaterials(ctx, f.Owner, p.ID, &a.ID, &act1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "1b.pdf", one[0].Filename)
}

func TestDelete_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")

	_, err := f.Patients.Delete(ctx, uuid.New(), p.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.Patients.Delete(ctx, f.Owner, p.ID)
	require.NoError(t, err)
	_, err = f.Patients.Get(ctx, f.Owner, p.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, f.EventTypes(), model.EventPatientDeleted)
}
