package group_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func TestGetIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	g := f.Group(t, "Tuesday", f.Patient(t, "Ana").ID)

	got, err := f.Groups.Get(ctx, f.Owner, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", got.Name)

	_, err = f.Groups.Get(ctx, uuid.New(), g.ID)
	assert.True(t, apperrors.IsNotFound(err))

	list, err := f.Groups.List(ctx, f.Owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateGoals(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	g := f.Group(t, "Tuesday", f.Patient(t, "Ana").ID)

	got, err := f.Groups.UpdateGoals(ctx, f.Owner, g.ID, []string{"sharing", "waiting", "sharing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sharing", "waiting"}, got.Goals)
	assert.Equal(t, []string{"sharing", "waiting"}, f.LoadGroup(t, g.ID).Goals)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	g := f.Group(t, "Tuesday", p.ID)
	f.GroupAppointment(t, g.ID, 0)

	_, err := f.Groups.Delete(ctx, uuid.New(), g.ID)
	assert.True(t, apperrors.IsNotFound(err))

	report, err := f.Groups.Delete(ctx, f.Owner, g.ID)
	require.NoError(t, err)
	_, failed := report.Failure()
	assert.False(t, failed)

	got := f.LoadPatient(t, p.ID)
	assert.Nil(t, got.GroupID)
	assert.Empty(t, got.Appointments)
	assert.Contains(t, f.EventTypes(), model.EventGroupDeleted)

	_, err = f.Groups.Delete(ctx, f.Owner, g.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
