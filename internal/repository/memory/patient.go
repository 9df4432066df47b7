package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type patientRepo struct {
	s *Store
}

func (r *patientRepo) Create(ctx context.Context, patient *model.Patient) error {
	if err := r.s.lock("patients.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[patient.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.patients[patient.ID] = clonePatient(patient)
	return nil
}

func (r *patientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if err := r.s.lock("patients.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePatient(p), nil
}

func (r *patientRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Patient, error) {
	if err := r.s.lock("patients.List"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*model.Patient
	for _, p := range r.s.patients {
		if p.OwnerID == ownerID {
			out = append(out, clonePatient(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *patientRepo) UpdateProfile(ctx context.Context, patient *model.Patient) error {
	return r.mutate("patients.UpdateProfile", patient.ID, func(p *model.Patient) {
		p.Name = patient.Name
		p.Age = patient.Age
		p.Address = patient.Address
		p.Grade = patient.Grade
		p.PastHistory = slices.Clone(patient.PastHistory)
		p.AvatarURL = patient.AvatarURL
		p.UpdatedAt = patient.UpdatedAt
	})
}

func (r *patientRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if err := r.s.lock("patients.Delete"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.patients, id)
	return clonePatient(p), nil
}

func (r *patientRepo) CountOwned(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if err := r.s.lock("patients.CountOwned"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range lo.Uniq(ids) {
		if p, ok := r.s.patients[id]; ok && p.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *patientRepo) ListIDsByGroup(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	if err := r.s.lock("patients.ListIDsByGroup"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.s.patients {
		if p.GroupID != nil && *p.GroupID == groupID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *patientRepo) ListIDsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	if err := r.s.lock("patients.ListIDsByAppointment"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.s.patients {
		if referencesAppointment(p, appointmentID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func referencesAppointment(p *model.Patient, appointmentID uuid.UUID) bool {
	return slices.Contains(p.Appointments, appointmentID) ||
		slices.ContainsFunc(p.VisitHistory, func(v model.VisitRow) bool { return v.AppointmentID == appointmentID }) ||
		slices.ContainsFunc(p.Attendance, func(a model.AttendanceRow) bool { return a.AppointmentID == appointmentID })
}

func (r *patientRepo) SetGroup(ctx context.Context, id uuid.UUID, groupID *uuid.UUID) error {
	return r.mutate("patients.SetGroup", id, func(p *model.Patient) {
		p.GroupID = cloneIDPtr(groupID)
	})
}

func (r *patientRepo) ClearGroup(ctx context.Context, ids []uuid.UUID, groupID uuid.UUID) (int64, error) {
	if err := r.s.lock("patients.ClearGroup"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if p, ok := r.s.patients[id]; ok && p.GroupID != nil && *p.GroupID == groupID {
			p.GroupID = nil
			n++
		}
	}
	return n, nil
}

func (r *patientRepo) AddAppointments(ctx context.Context, id uuid.UUID, appointmentIDs []uuid.UUID) error {
	return r.mutate("patients.AddAppointments", id, func(p *model.Patient) {
		for _, a := range appointmentIDs {
			p.Appointments = addToSet(p.Appointments, a)
		}
	})
}

func (r *patientRepo) PullAppointments(ctx context.Context, id uuid.UUID, appointmentIDs []uuid.UUID) error {
	return r.mutate("patients.PullAppointments", id, func(p *model.Patient) {
		p.Appointments = pull(p.Appointments, appointmentIDs...)
	})
}

func (r *patientRepo) LinkAppointment(ctx context.Context, ids []uuid.UUID, row model.AttendanceRow) error {
	return r.mutateMany("patients.LinkAppointment", ids, func(p *model.Patient) {
		p.Appointments = addToSet(p.Appointments, row.AppointmentID)
		if !slices.ContainsFunc(p.Attendance, func(a model.AttendanceRow) bool { return a.AppointmentID == row.AppointmentID }) {
			p.Attendance = append(p.Attendance, row)
		}
	})
}

func (r *patientRepo) UnlinkAppointment(ctx context.Context, ids []uuid.UUID, appointmentID uuid.UUID) error {
	return r.mutateMany("patients.UnlinkAppointment", ids, func(p *model.Patient) {
		p.Appointments = pull(p.Appointments, appointmentID)
		p.VisitHistory = slices.DeleteFunc(p.VisitHistory, func(v model.VisitRow) bool { return v.AppointmentID == appointmentID })
		p.Attendance = slices.DeleteFunc(p.Attendance, func(a model.AttendanceRow) bool { return a.AppointmentID == appointmentID })
	})
}

func (r *patientRepo) RemoveVisitRow(ctx context.Context, id, appointmentID uuid.UUID) error {
	return r.mutate("patients.RemoveVisitRow", id, func(p *model.Patient) {
		p.VisitHistory = slices.DeleteFunc(p.VisitHistory, func(v model.VisitRow) bool { return v.AppointmentID == appointmentID })
	})
}

func (r *patientRepo) InsertVisitRow(ctx context.Context, id uuid.UUID, row model.VisitRow) (bool, error) {
	inserted := false
	err := r.mutate("patients.InsertVisitRow", id, func(p *model.Patient) {
		if slices.ContainsFunc(p.VisitHistory, func(v model.VisitRow) bool { return v.AppointmentID == row.AppointmentID }) {
			return
		}
		row.AIInsights = slices.Clone(row.AIInsights)
		row.Activities = lo.Uniq(row.Activities)
		p.VisitHistory = append(p.VisitHistory, row)
		inserted = true
	})
	return inserted, err
}

// PullVisitActivity and AddVisitActivity touch only the first row for the
// appointment, like a positional update, and are no-ops when it is missing.
func (r *patientRepo) PullVisitActivity(ctx context.Context, id, appointmentID, activityID uuid.UUID) error {
	return r.positional("patients.PullVisitActivity", id, appointmentID, func(row *model.VisitRow) {
		row.Activities = pull(row.Activities, activityID)
	})
}

func (r *patientRepo) AddVisitActivity(ctx context.Context, id, appointmentID, activityID uuid.UUID) error {
	return r.positional("patients.AddVisitActivity", id, appointmentID, func(row *model.VisitRow) {
		row.Activities = addToSet(row.Activities, activityID)
	})
}

func (r *patientRepo) PullActivity(ctx context.Context, ids []uuid.UUID, activityID uuid.UUID) error {
	return r.mutateMany("patients.PullActivity", ids, func(p *model.Patient) {
		for i := range p.VisitHistory {
			p.VisitHistory[i].Activities = pull(p.VisitHistory[i].Activities, activityID)
		}
	})
}

func (r *patientRepo) RetimeAttendance(ctx context.Context, appointmentID uuid.UUID, date time.Time) (int64, error) {
	if err := r.s.lock("patients.RetimeAttendance"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var matched int64
	for _, p := range r.s.patients {
		hit := false
		for i := range p.Attendance {
			if p.Attendance[i].AppointmentID == appointmentID {
				p.Attendance[i].Date = date
				hit = true
			}
		}
		if hit {
			matched++
		}
	}
	return matched, nil
}

func (r *patientRepo) SetGoals(ctx context.Context, id uuid.UUID, goals []string) error {
	return r.mutate("patients.SetGoals", id, func(p *model.Patient) {
		p.Goals = slices.Clone(goals)
	})
}

func (r *patientRepo) SetGoalProgress(ctx context.Context, id uuid.UUID, progress []model.GoalProgress) error {
	return r.mutate("patients.SetGoalProgress", id, func(p *model.Patient) {
		p.GoalProgress = clonePatient(&model.Patient{GoalProgress: progress}).GoalProgress
	})
}

func (r *patientRepo) AppendGoalHistory(ctx context.Context, id uuid.UUID, goals []string, event model.GoalEvent) error {
	return r.mutate("patients.AppendGoalHistory", id, func(p *model.Patient) {
		for i := range p.GoalProgress {
			if slices.Contains(goals, p.GoalProgress[i].Name) {
				p.GoalProgress[i].Associated = append(p.GoalProgress[i].Associated, event)
			}
		}
	})
}

func (r *patientRepo) RemoveMaterial(ctx context.Context, id, appointmentID, activityID uuid.UUID) error {
	return r.mutate("patients.RemoveMaterial", id, func(p *model.Patient) {
		p.Materials = slices.DeleteFunc(p.Materials, func(m model.Material) bool {
			return m.AppointmentID == appointmentID && m.ActivityID == activityID
		})
	})
}

func (r *patientRepo) PushMaterial(ctx context.Context, id uuid.UUID, material model.Material) error {
	return r.mutate("patients.PushMaterial", id, func(p *model.Patient) {
		p.Materials = append(p.Materials, material)
	})
}

func (r *patientRepo) mutate(op string, id uuid.UUID, fn func(p *model.Patient)) error {
	if err := r.s.lock(op); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	return nil
}

func (r *patientRepo) mutateMany(op string, ids []uuid.UUID, fn func(p *model.Patient)) error {
	if err := r.s.lock(op); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if p, ok := r.s.patients[id]; ok {
			fn(p)
		}
	}
	return nil
}

func (r *patientRepo) positional(op string, id, appointmentID uuid.UUID, fn func(row *model.VisitRow)) error {
	if err := r.s.lock(op); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil
	}
	for i := range p.VisitHistory {
		if p.VisitHistory[i].AppointmentID == appointmentID {
			fn(&p.VisitHistory[i])
			return nil
		}
	}
	return nil
}
