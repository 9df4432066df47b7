package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/recommendation"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type scenario struct {
	f       *servicetest.Fixture
	members []uuid.UUID
	appt    *model.Appointment
}

func newScenario(t *testing.T) scenario {
	t.Helper()
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)
	a := f.GroupAppointment(t, g.ID, 0)
	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		_, err := f.Patients.AddVisitHistory(ctx, f.Owner, id, &model.VisitRowRequest{AppointmentID: a.ID, Date: a.Start})
		require.NoError(t, err)
	}
	return scenario{f: f, members: []uuid.UUID{p1.ID, p2.ID}, appt: a}
}

func TestGenerate_AttachesEverywhere(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	s.f.Generator.Text = "  ### Turn taking\n1. Roll the ball  "

	out, err := s.f.Activities.Generate(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{
		Members:   s.members,
		Goals:     []string{"turn taking"},
		Materials: []string{"ball"},
		Duration:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, "### Turn taking\n1. Roll the ball", out.Plan)
	assert.Equal(t, "Generated Activity", out.Activity.Name)
	assert.Equal(t, out.Plan, out.Activity.Description)
	_, failed := out.Report.Failure()
	assert.False(t, failed)

	assert.Equal(t, []uuid.UUID{out.Activity.ID}, s.f.LoadAppointment(t, s.appt.ID).Activities)
	for _, id := range s.members {
		rows := s.f.LoadPatient(t, id).VisitRows(s.appt.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, []uuid.UUID{out.Activity.ID}, rows[0].Activities)
	}

	require.Equal(t, 1, s.f.Generator.Calls())
	prompt := s.f.Generator.Prompts[0]
	assert.Contains(t, prompt, "• Duration: 20 Minutes")
	assert.Contains(t, prompt, "• Use ONLY these materials: ball")
	assert.Contains(t, prompt, visit.PlaceholderNote)
	assert.Contains(t, s.f.EventTypes(), model.EventActivityAttached)
}

func TestGenerate_FailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	s.f.Generator.Err = errors.New("quota exceeded")

	_, err := s.f.Activities.Generate(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{Name: "Bubbles"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))

	assert.Empty(t, s.f.LoadAppointment(t, s.appt.ID).Activities)
	for _, id := range s.members {
		assert.Empty(t, s.f.LoadPatient(t, id).VisitRows(s.appt.ID)[0].Activities)
	}
	assert.NotContains(t, s.f.EventTypes(), model.EventActivityAttached)
}

func TestGenerate_UsesRecommendationNotes(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	_, err := s.f.Recommendations.Create(ctx, s.f.Owner, s.appt.ID, &recommendation.CreateRequest{
		IndividualInsights: []model.IndividualInsight{{
			PatientID: s.members[0],
			Insights:  []model.Insight{{Time: "00:04", Text: "shared the ball"}},
		}},
	})
	require.NoError(t, err)

	_, err = s.f.Activities.Generate(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{
		Name:    "Bubbles",
		Members: s.members[:1],
	})
	require.NoError(t, err)
	prompt := s.f.Generator.Prompts[0]
	assert.Contains(t, prompt, "• [00:04] shared the ball")
	assert.Contains(t, prompt, "### Bubbles")
	assert.NotContains(t, prompt, visit.PlaceholderNote)
}

func TestDraft(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)

	t.Run("fenced json", func(t *testing.T) {
		s.f.Generator.Text = "```json\n{\"name\":\"Echo game\",\"description\":\"Repeat after me\",\"materials\":[\"cards\",\"\"]}\n```"
		draft, err := s.f.Activities.Draft(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{Idea: "echo"})
		require.NoError(t, err)
		assert.Equal(t, "Echo game", draft.Name)
		assert.Equal(t, []string{"cards"}, draft.Materials)
	})

	t.Run("not json", func(t *testing.T) {
		s.f.Generator.Text = "I cannot help with that"
		_, err := s.f.Activities.Draft(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{})
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
	})

	assert.Empty(t, s.f.LoadAppointment(t, s.appt.ID).Activities)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	out, err := s.f.Activities.Generate(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{Name: "Bubbles"})
	require.NoError(t, err)

	name := "Big bubbles"
	materials := []string{"wand", "soap"}
	got, err := s.f.Activities.Update(ctx, s.f.Owner, s.appt.ID, out.Activity.ID, &model.UpdateActivityRequest{
		Name:      &name,
		Materials: &materials,
	})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, materials, got.Materials)
	assert.Equal(t, out.Plan, got.Description)

	other := s.f.IndividualAppointment(t, s.members[0], 4)
	_, err = s.f.Activities.Update(ctx, s.f.Owner, other.ID, out.Activity.ID, &model.UpdateActivityRequest{Name: &name})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	out, err := s.f.Activities.Generate(ctx, s.f.Owner, s.appt.ID, &model.GenerateActivityRequest{Name: "Bubbles"})
	require.NoError(t, err)

	_, err = s.f.Activities.Delete(ctx, uuid.New(), s.appt.ID, out.Activity.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.f.Activities.Delete(ctx, s.f.Owner, s.appt.ID, out.Activity.ID)
	require.NoError(t, err)
	_, err = s.f.Activities.Get(ctx, s.f.Owner, out.Activity.ID)
	assert.True(t, apperrors.IsNotFound(err))
	for _, id := range s.members {
		assert.Empty(t, s.f.LoadPatient(t, id).VisitRows(s.appt.ID)[0].Activities)
	}
}
