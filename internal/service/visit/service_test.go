package visit_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	"github.com/jwalitptl/practice-api/internal/service/visit"
)

func TestResolveParticipants(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)

	got, err := f.Visits.ResolveParticipants(ctx, &model.Appointment{Kind: model.AppointmentKindGroup, GroupID: &g.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1.ID, p2.ID}, got)

	got, err = f.Visits.ResolveParticipants(ctx, &model.Appointment{Kind: model.AppointmentKindIndividual, PatientID: &p1.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p1.ID}, got)

	missing := uuid.New()
	got, err = f.Visits.ResolveParticipants(ctx, &model.Appointment{Kind: model.AppointmentKindGroup, GroupID: &missing})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsertVisitRow_ReplacesRow(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)
	act := uuid.New()

	require.NoError(t, f.Visits.UpsertVisitRow(ctx, p.ID, model.VisitRow{
		AppointmentID: a.ID,
		Date:          a.Start,
		Note:          "first",
	}))
	require.NoError(t, f.Visits.UpsertVisitRow(ctx, p.ID, model.VisitRow{
		AppointmentID: a.ID,
		Date:          a.Start,
		Note:          "second",
		Activities:    []uuid.UUID{act, act},
	}))

	rows := f.LoadPatient(t, p.ID).VisitRows(a.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Note)
	assert.Equal(t, []uuid.UUID{act}, rows[0].Activities)
}

func TestUpsertVisitRow_MissingPatient(t *testing.T) {
	f := servicetest.New(t)
	err := f.Visits.UpsertVisitRow(context.Background(), uuid.New(), model.VisitRow{AppointmentID: uuid.New()})
	assert.Error(t, err)
}

func TestAttachDetachActivity(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)
	a := f.GroupAppointment(t, g.ID, 0)
	// Only p1 has a visit row.
	require.NoError(t, f.Visits.UpsertVisitRow(ctx, p1.ID, model.VisitRow{AppointmentID: a.ID, Date: a.Start}))
	act := uuid.New()

	for i := 0; i < 2; i++ {
		report, err := f.Visits.AttachActivity(ctx, a, act)
		require.NoError(t, err)
		_, failed := report.Failure()
		assert.False(t, failed)
	}
	assert.Equal(t, []uuid.UUID{act}, f.LoadPatient(t, p1.ID).VisitRows(a.ID)[0].Activities)
	assert.Empty(t, f.LoadPatient(t, p2.ID).VisitHistory)

	require.NoError(t, f.Store.Appointments.AddActivity(ctx, a.ID, act))
	report, err := f.Visits.DetachActivity(ctx, a, act)
	require.NoError(t, err)
	s, ok := report.Step("pull_from_appointment")
	require.True(t, ok)
	assert.Equal(t, model.StepApplied, s.Status)
	assert.Empty(t, f.LoadPatient(t, p1.ID).VisitRows(a.ID)[0].Activities)
	assert.Empty(t, f.LoadAppointment(t, a.ID).Activities)
}

func TestAttachDetachActivity_Sequences(t *testing.T) {
	const (
		attach = true
		detach = false
	)
	random := rand.New(rand.NewSource(42))
	randomOps := make([]bool, 40)
	for i := range randomOps {
		randomOps[i] = random.Intn(2) == 0
	}

	tests := []struct {
		name string
		ops  []bool
	}{
		{"attach once", []bool{attach}},
		{"detach without attach", []bool{detach}},
		{"attach twice", []bool{attach, attach}},
		{"attach then detach", []bool{attach, detach}},
		{"detach twice then attach", []bool{detach, detach, attach}},
		{"alternating", []bool{attach, detach, attach, detach, attach}},
		{"repeated attach then detach", []bool{attach, attach, attach, detach}},
		{"random", randomOps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := servicetest.New(t)
			p1 := f.Patient(t, "Ana")
			p2 := f.Patient(t, "Ben")
			g := f.Group(t, "Tuesday", p1.ID, p2.ID)
			a := f.GroupAppointment(t, g.ID, 0)
			for _, id := range []uuid.UUID{p1.ID, p2.ID} {
				require.NoError(t, f.Visits.UpsertVisitRow(ctx, id, model.VisitRow{AppointmentID: a.ID, Date: a.Start}))
			}
			act := uuid.New()

			for i, op := range tt.ops {
				var err error
				if op == attach {
					_, err = f.Visits.AttachActivity(ctx, a, act)
				} else {
					_, err = f.Visits.DetachActivity(ctx, a, act)
				}
				require.NoError(t, err)

				want := 0
				if op == attach {
					want = 1
				}
				for _, id := range []uuid.UUID{p1.ID, p2.ID} {
					rows := f.LoadPatient(t, id).VisitRows(a.ID)
					require.Len(t, rows, 1)
					got := 0
					for _, x := range rows[0].Activities {
						if x == act {
							got++
						}
					}
					assert.Equal(t, want, got, "after op %d", i)
				}
			}
		})
	}
}

func TestComposeNotes(t *testing.T) {
	withNotes := uuid.New()
	without := uuid.New()
	rec := &model.Recommendation{
		IndividualInsights: []model.IndividualInsight{{
			PatientID: withNotes,
			Insights: []model.Insight{
				{Time: "00:05", Text: "waited for turn"},
				{Time: "00:12", Text: "asked for help"},
			},
		}},
	}

	t.Run("no members", func(t *testing.T) {
		got := visit.ComposeNotes(rec, nil)
		assert.True(t, strings.HasPrefix(got, "### No specific members selected"))
		assert.Contains(t, got, visit.PlaceholderNote)
	})

	t.Run("mixed members", func(t *testing.T) {
		got := visit.ComposeNotes(rec, []uuid.UUID{withNotes, without})
		blocks := strings.Split(got, "\n\n")
		require.Len(t, blocks, 2)
		assert.Equal(t, "• [00:05] waited for turn\n• [00:12] asked for help", blocks[0])
		assert.Equal(t, visit.PlaceholderNote, blocks[1])
	})

	t.Run("no recommendation", func(t *testing.T) {
		got := visit.ComposeNotes(nil, []uuid.UUID{withNotes})
		assert.Equal(t, visit.PlaceholderNote, got)
	})
}
