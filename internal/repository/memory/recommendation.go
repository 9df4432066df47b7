package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type recommendationRepo struct {
	s *Store
}

func (r *recommendationRepo) Create(ctx context.Context, rec *model.Recommendation) error {
	if err := r.s.lock("recommendations.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, existing := range r.s.recommendations {
		if existing.ID == rec.ID || existing.AppointmentID == rec.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	r.s.recommendations[rec.ID] = cloneRecommendation(rec)
	return nil
}

func (r *recommendationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error) {
	if err := r.s.lock("recommendations.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	rec, ok := r.s.recommendations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRecommendation(rec), nil
}

func (r *recommendationRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Recommendation, error) {
	if err := r.s.lock("recommendations.GetByAppointment"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, rec := range r.s.recommendations {
		if rec.AppointmentID == appointmentID {
			return cloneRecommendation(rec), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *recommendationRepo) DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	if err := r.s.lock("recommendations.DeleteByAppointment"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, rec := range r.s.recommendations {
		if rec.AppointmentID == appointmentID {
			delete(r.s.recommendations, id)
			n++
		}
	}
	return n, nil
}
