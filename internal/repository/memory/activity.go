package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type activityRepo struct {
	s *Store
}

func (r *activityRepo) Create(ctx context.Context, activity *model.Activity) error {
	if err := r.s.lock("activities.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.activities[activity.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.activities[activity.ID] = cloneActivity(activity)
	return nil
}

func (r *activityRepo) Get(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	if err := r.s.lock("activities.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneActivity(a), nil
}

func (r *activityRepo) Update(ctx context.Context, activity *model.Activity) error {
	if err := r.s.lock("activities.Update"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.activities[activity.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.Name = activity.Name
	a.Description = activity.Description
	a.Materials = slices.Clone(activity.Materials)
	a.Goals = slices.Clone(activity.Goals)
	a.UpdatedAt = activity.UpdatedAt
	return nil
}

func (r *activityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.s.lock("activities.Delete"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.activities[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.activities, id)
	return nil
}

func (r *activityRepo) PullMember(ctx context.Context, patientID uuid.UUID) error {
	if err := r.s.lock("activities.PullMember"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, a := range r.s.activities {
		a.Members = pull(a.Members, patientID)
	}
	return nil
}
