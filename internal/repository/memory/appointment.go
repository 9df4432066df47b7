package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type appointmentRepo struct {
	s *Store
}

func (r *appointmentRepo) Create(ctx context.Context, appointment *model.Appointment) error {
	if err := r.s.lock("appointments.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[appointment.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.appointments[appointment.ID] = cloneAppointment(appointment)
	return nil
}

func (r *appointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	if err := r.s.lock("appointments.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (r *appointmentRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Appointment, error) {
	return r.filter("appointments.List", func(a *model.Appointment) bool { return a.OwnerID == ownerID })
}

func (r *appointmentRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	if err := r.s.lock("appointments.Delete"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.appointments, id)
	return cloneAppointment(a), nil
}

func (r *appointmentRepo) UpdateTarget(ctx context.Context, appointment *model.Appointment) error {
	return r.mutate("appointments.UpdateTarget", appointment.ID, func(a *model.Appointment) {
		a.Kind = appointment.Kind
		a.GroupID = cloneIDPtr(appointment.GroupID)
		a.PatientID = cloneIDPtr(appointment.PatientID)
		a.UpdatedAt = appointment.UpdatedAt
	})
}

func (r *appointmentRepo) SetSchedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	return r.mutate("appointments.SetSchedule", id, func(a *model.Appointment) {
		a.Start = start
		a.End = end
	})
}

func (r *appointmentRepo) CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	list, err := r.filter("appointments.CountByGroup", func(a *model.Appointment) bool {
		return a.GroupID != nil && *a.GroupID == groupID
	})
	return int64(len(list)), err
}

func (r *appointmentRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Appointment, error) {
	return r.filter("appointments.ListByGroup", func(a *model.Appointment) bool {
		return a.GroupID != nil && *a.GroupID == groupID
	})
}

func (r *appointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return r.filter("appointments.ListByPatient", func(a *model.Appointment) bool {
		return a.PatientID != nil && *a.PatientID == patientID
	})
}

func (r *appointmentRepo) AddActivity(ctx context.Context, id, activityID uuid.UUID) error {
	return r.mutate("appointments.AddActivity", id, func(a *model.Appointment) {
		a.Activities = addToSet(a.Activities, activityID)
	})
}

func (r *appointmentRepo) PullActivity(ctx context.Context, id, activityID uuid.UUID) error {
	return r.mutate("appointments.PullActivity", id, func(a *model.Appointment) {
		a.Activities = pull(a.Activities, activityID)
	})
}

func (r *appointmentRepo) LinkRecommendation(ctx context.Context, id, recommendationID uuid.UUID) error {
	if err := r.s.lock("appointments.LinkRecommendation"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Recommendation != nil {
		return repository.ErrDuplicate
	}
	a.Recommendation = &recommendationID
	return nil
}

func (r *appointmentRepo) mutate(op string, id uuid.UUID, fn func(a *model.Appointment)) error {
	if err := r.s.lock(op); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	return nil
}

func (r *appointmentRepo) filter(op string, keep func(a *model.Appointment) bool) ([]*model.Appointment, error) {
	if err := r.s.lock(op); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if keep(a) {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
