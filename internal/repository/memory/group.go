package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type groupRepo struct {
	s *Store
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	if err := r.s.lock("groups.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.groups[group.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.groups[group.ID] = cloneGroup(group)
	return nil
}

func (r *groupRepo) Get(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	if err := r.s.lock("groups.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (r *groupRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Group, error) {
	if err := r.s.lock("groups.List"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*model.Group
	for _, g := range r.s.groups {
		if g.OwnerID == ownerID {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *groupRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	if err := r.s.lock("groups.Delete"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.groups, id)
	return cloneGroup(g), nil
}

func (r *groupRepo) SetGoals(ctx context.Context, id uuid.UUID, goals []string) error {
	return r.mutate("groups.SetGoals", id, func(g *model.Group) {
		g.Goals = slices.Clone(goals)
	})
}

func (r *groupRepo) AddPatient(ctx context.Context, id, patientID uuid.UUID) error {
	return r.mutate("groups.AddPatient", id, func(g *model.Group) {
		g.Patients = addToSet(g.Patients, patientID)
	})
}

func (r *groupRepo) RemovePatient(ctx context.Context, id, patientID uuid.UUID) error {
	return r.mutate("groups.RemovePatient", id, func(g *model.Group) {
		g.Patients = pull(g.Patients, patientID)
	})
}

func (r *groupRepo) AddAppointment(ctx context.Context, id, appointmentID uuid.UUID) error {
	return r.mutate("groups.AddAppointment", id, func(g *model.Group) {
		g.Appointments = addToSet(g.Appointments, appointmentID)
	})
}

func (r *groupRepo) RemoveAppointment(ctx context.Context, id, appointmentID uuid.UUID) error {
	return r.mutate("groups.RemoveAppointment", id, func(g *model.Group) {
		g.Appointments = pull(g.Appointments, appointmentID)
	})
}

func (r *groupRepo) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Group, error) {
	if err := r.s.lock("groups.FindByAppointment"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if slices.Contains(g.Appointments, appointmentID) {
			return cloneGroup(g), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *groupRepo) mutate(op string, id uuid.UUID, fn func(g *model.Group)) error {
	if err := r.s.lock(op); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(g)
	return nil
}
