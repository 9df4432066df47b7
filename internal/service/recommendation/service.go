package recommendation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

var errAlreadyRecommended = errors.New("appointment already has a recommendation")

type CreateRequest struct {
	GroupInsights      []model.Insight           `json:"group_insights"`
	IndividualInsights []model.IndividualInsight `json:"individual_insights"`
	Materials          []string                  `json:"materials"`
}

type Service struct {
	store  repository.Store
	logger *logger.Logger
}

func NewService(store repository.Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// Create stores the recommendation for an appointment that has none yet and
// links it from the appointment.
func (s *Service) Create(ctx context.Context, ownerID, appointmentID uuid.UUID, req *CreateRequest) (*model.Recommendation, error) {
	appt, err := s.store.Appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}
	if appt.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	if appt.Recommendation != nil {
		return nil, apperrors.NewInvariantViolation(errAlreadyRecommended.Error(), nil)
	}

	rec := &model.Recommendation{
		AppointmentID:      appt.ID,
		GroupInsights:      req.GroupInsights,
		IndividualInsights: req.IndividualInsights,
		Materials:          req.Materials,
	}
	rec.OwnerID = ownerID
	rec.Touch(time.Now().UTC())
	if err := s.store.Recommendations.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewInvariantViolation(errAlreadyRecommended.Error(), err)
		}
		return nil, apperrors.NewInternal(err)
	}

	if err := s.store.Appointments.LinkRecommendation(ctx, appt.ID, rec.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race to another writer; drop our copy.
			if _, derr := s.store.Recommendations.DeleteByAppointment(ctx, appt.ID); derr != nil {
				s.logger.Error(derr, "failed to drop duplicate recommendation", "appointment", appt.ID.String())
			}
			return nil, apperrors.NewInvariantViolation(errAlreadyRecommended.Error(), err)
		}
		return nil, flow.Lookup("appointment", err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Recommendation, error) {
	rec, err := s.store.Recommendations.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("recommendation", err)
	}
	if rec.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("recommendation", nil)
	}
	return rec, nil
}

func (s *Service) GetByAppointment(ctx context.Context, ownerID, appointmentID uuid.UUID) (*model.Recommendation, error) {
	rec, err := s.store.Recommendations.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, flow.Lookup("recommendation", err)
	}
	if rec.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("recommendation", nil)
	}
	return rec, nil
}
