package recommendation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/recommendation"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

func request(patientID uuid.UUID) *recommendation.CreateRequest {
	return &recommendation.CreateRequest{
		GroupInsights: []model.Insight{{Text: "calm start"}},
		IndividualInsights: []model.IndividualInsight{{
			PatientID: patientID,
			Insights:  []model.Insight{{Time: "00:03", Text: "made eye contact"}},
		}},
		Materials: []string{"timer"},
	}
}

func TestCreate_LinksAppointment(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	rec, err := f.Recommendations.Create(ctx, f.Owner, a.ID, request(p.ID))
	require.NoError(t, err)
	assert.Equal(t, a.ID, rec.AppointmentID)

	stored := f.LoadAppointment(t, a.ID)
	require.NotNil(t, stored.Recommendation)
	assert.Equal(t, rec.ID, *stored.Recommendation)

	got, err := f.Recommendations.GetByAppointment(ctx, f.Owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	_, err = f.Recommendations.Get(ctx, uuid.New(), rec.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreate_SecondIsRejected(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	first, err := f.Recommendations.Create(ctx, f.Owner, a.ID, request(p.ID))
	require.NoError(t, err)
	_, err = f.Recommendations.Create(ctx, f.Owner, a.ID, request(p.ID))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvariantViolation))

	got, err := f.Recommendations.GetByAppointment(ctx, f.Owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

// staleAppointments serves appointments as they were before any
// recommendation was linked.
type staleAppointments struct {
	repository.AppointmentRepository
}

func (r staleAppointments) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := r.AppointmentRepository.Get(ctx, id)
	if err == nil {
		a.Recommendation = nil
	}
	return a, err
}

func TestCreate_LostLinkRaceDropsCopy(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	// Another writer linked first but its document is not stored yet.
	winner := uuid.New()
	require.NoError(t, f.Store.Appointments.LinkRecommendation(ctx, a.ID, winner))

	store := f.Store
	store.Appointments = staleAppointments{f.Store.Appointments}
	svc := recommendation.NewService(store, logger.Nop())

	_, err := svc.Create(ctx, f.Owner, a.ID, request(p.ID))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvariantViolation))

	_, err = f.Store.Recommendations.GetByAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, winner, *f.LoadAppointment(t, a.ID).Recommendation)
}

func TestCreate_UnknownAppointment(t *testing.T) {
	f := servicetest.New(t)
	_, err := f.Recommendations.Create(context.Background(), f.Owner, uuid.New(), request(uuid.New()))
	assert.True(t, apperrors.IsNotFound(err))
}
