package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

func TestDelete_ReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repos := s.Repositories()

	patient := &model.Patient{Name: "Ana", Appointments: []uuid.UUID{uuid.New()}}
	patient.ID = uuid.New()
	require.NoError(t, repos.Patients.Create(ctx, patient))
	group := &model.Group{Name: "Tuesday", Patients: []uuid.UUID{patient.ID}}
	group.ID = uuid.New()
	require.NoError(t, repos.Groups.Create(ctx, group))
	appt := &model.Appointment{Kind: model.AppointmentKindGroup, GroupID: &group.ID}
	appt.ID = uuid.New()
	require.NoError(t, repos.Appointments.Create(ctx, appt))

	storedPatient := s.patients[patient.ID]
	storedGroup := s.groups[group.ID]
	storedAppt := s.appointments[appt.ID]

	gotPatient, err := repos.Patients.Delete(ctx, patient.ID)
	require.NoError(t, err)
	assert.NotSame(t, storedPatient, gotPatient)
	assert.Equal(t, storedPatient.Appointments, gotPatient.Appointments)
	gotPatient.Appointments[0] = uuid.Nil
	assert.NotEqual(t, uuid.Nil, storedPatient.Appointments[0])

	gotGroup, err := repos.Groups.Delete(ctx, group.ID)
	require.NoError(t, err)
	assert.NotSame(t, storedGroup, gotGroup)
	assert.Equal(t, []uuid.UUID{patient.ID}, gotGroup.Patients)

	gotAppt, err := repos.Appointments.Delete(ctx, appt.ID)
	require.NoError(t, err)
	assert.NotSame(t, storedAppt, gotAppt)
	assert.NotSame(t, storedAppt.GroupID, gotAppt.GroupID)

	_, err = repos.Patients.Delete(ctx, patient.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repos := s.Repositories()
	boom := errors.New("write timeout")

	s.InjectFault("patients.Delete", boom)
	_, err := repos.Patients.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, boom)

	s.ClearFaults()
	_, err = repos.Patients.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
