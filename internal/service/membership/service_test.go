package membership_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/membership"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func TestSetGroupMembership_Reassign(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	anchorA := f.Patient(t, "Ben")
	anchorB := f.Patient(t, "Cy")
	ga := f.Group(t, "Tuesday", p.ID, anchorA.ID)
	gb := f.Group(t, "Thursday", anchorB.ID)
	aa := f.GroupAppointment(t, ga.ID, 0)
	ab := f.GroupAppointment(t, gb.ID, 2)

	report, err := f.Membership.SetGroupMembership(ctx, p.ID, &gb.ID)
	require.NoError(t, err)
	for _, step := range []string{"leave_previous_group", "drop_previous_appointments", "add_to_group", "copy_group_appointments", "set_patient_group"} {
		s, ok := report.Step(step)
		require.True(t, ok, step)
		assert.Equal(t, model.StepApplied, s.Status, step)
	}

	moved := f.LoadPatient(t, p.ID)
	require.NotNil(t, moved.GroupID)
	assert.Equal(t, gb.ID, *moved.GroupID)
	assert.Equal(t, []uuid.UUID{ab.ID}, moved.Appointments)
	assert.NotContains(t, f.LoadGroup(t, ga.ID).Patients, p.ID)
	assert.Contains(t, f.LoadGroup(t, gb.ID).Patients, p.ID)
	assert.Equal(t, []uuid.UUID{aa.ID}, f.LoadPatient(t, anchorA.ID).Appointments)
	assert.Contains(t, f.EventTypes(), model.EventMembershipChanged)
}

func TestSetGroupMembership_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	anchor := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", anchor.ID)
	a := f.GroupAppointment(t, g.ID, 0)

	for i := 0; i < 2; i++ {
		_, err := f.Membership.SetGroupMembership(ctx, p.ID, &g.ID)
		require.NoError(t, err)
	}

	got := f.LoadPatient(t, p.ID)
	assert.Equal(t, []uuid.UUID{a.ID}, got.Appointments)
	group := f.LoadGroup(t, g.ID)
	assert.ElementsMatch(t, []uuid.UUID{anchor.ID, p.ID}, group.Patients)
}

func TestSetGroupMembership_Leave(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	anchor := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p.ID, anchor.ID)
	f.GroupAppointment(t, g.ID, 0)

	report, err := f.Membership.SetGroupMembership(ctx, p.ID, nil)
	require.NoError(t, err)
	s, ok := report.Step("add_to_group")
	require.True(t, ok)
	assert.Equal(t, model.StepSkipped, s.Status)

	got := f.LoadPatient(t, p.ID)
	assert.Nil(t, got.GroupID)
	assert.Empty(t, got.Appointments)
	assert.Equal(t, []uuid.UUID{anchor.ID}, f.LoadGroup(t, g.ID).Patients)
}

func TestSetGroupMembership_Errors(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")

	missing := uuid.New()
	_, err := f.Membership.SetGroupMembership(ctx, p.ID, &missing)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.Membership.SetGroupMembership(ctx, uuid.New(), nil)
	assert.True(t, apperrors.IsNotFound(err))

	foreign, err := f.Patients.Create(ctx, uuid.New(), &model.CreatePatientRequest{Name: "Dee"})
	require.NoError(t, err)
	foreignGroup, _, err := f.Groups.Create(ctx, foreign.OwnerID, &model.CreateGroupRequest{
		Name:    "Elsewhere",
		Members: []uuid.UUID{foreign.ID},
	})
	require.NoError(t, err)
	_, err = f.Membership.SetGroupMembership(ctx, p.ID, &foreignGroup.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvariantViolation))
}

func TestSetGroupMembership_PartialFailureRetries(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	anchor := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", anchor.ID)
	a := f.GroupAppointment(t, g.ID, 0)

	f.Mem.InjectFault("patients.SetGroup", errors.New("write timeout"))
	report, err := f.Membership.SetGroupMembership(ctx, p.ID, &g.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrPartialCascade))
	s, ok := report.Failure()
	require.True(t, ok)
	assert.Equal(t, "set_patient_group", s.Step)

	f.Mem.ClearFaults()
	_, err = f.Membership.SetGroupMembership(ctx, p.ID, &g.ID)
	require.NoError(t, err)
	got := f.LoadPatient(t, p.ID)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, g.ID, *got.GroupID)
	assert.Equal(t, []uuid.UUID{a.ID}, got.Appointments)
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	old := f.Group(t, "Old", p1.ID)

	group, report, err := f.Membership.CreateGroup(ctx, membership.CreateGroupInput{
		OwnerID: f.Owner,
		Name:    "New",
		Goals:   []string{"sharing", "sharing"},
		Members: []uuid.UUID{p1.ID, p2.ID, p2.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sharing"}, group.Goals)
	assert.Len(t, report.Nested, 2)

	stored := f.LoadGroup(t, group.ID)
	assert.ElementsMatch(t, []uuid.UUID{p1.ID, p2.ID}, stored.Patients)
	assert.Empty(t, f.LoadGroup(t, old.ID).Patients)
	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		p := f.LoadPatient(t, id)
		require.NotNil(t, p.GroupID)
		assert.Equal(t, group.ID, *p.GroupID)
	}
}

func TestCreateGroup_InvalidMembers(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")

	tests := []struct {
		name    string
		members []uuid.UUID
	}{
		{"empty", nil},
		{"unknown patient", []uuid.UUID{p.ID, uuid.New()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.Membership.CreateGroup(ctx, membership.CreateGroupInput{
				OwnerID: f.Owner,
				Name:    "Broken",
				Members: tt.members,
			})
			assert.True(t, apperrors.Is(err, apperrors.ErrInvariantViolation))
		})
	}

	groups, err := f.Store.Groups.List(ctx, f.Owner)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetachMembers(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)

	n, err := f.Membership.DetachMembers(ctx, g.ID, []uuid.UUID{p1.ID, p1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Nil(t, f.LoadPatient(t, p1.ID).GroupID)
	assert.NotNil(t, f.LoadPatient(t, p2.ID).GroupID)

	n, err = f.Membership.DetachMembers(ctx, g.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
