// Package cascade deletes entities together with every denormalized copy of
// their references. Each cascade is a sequence of idempotent single-document
// writes; a failed step stops the sequence and calling the same operation
// again resumes from whatever references remain.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	"github.com/jwalitptl/practice-api/internal/service/membership"
	"github.com/jwalitptl/practice-api/internal/service/visit"
	"github.com/jwalitptl/practice-api/pkg/assets"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const (
	OpDeleteAppointment = "delete_appointment"
	OpDeleteGroup       = "delete_group"
	OpDeleteActivity    = "delete_activity"
	OpDeletePatient     = "delete_patient"
)

// ZeroRemainingAppointments is the rule that retires a group once no
// appointment targets it any more.
func ZeroRemainingAppointments(remaining int64) bool {
	return remaining == 0
}

type Service struct {
	store      repository.Store
	visits     *visit.Service
	membership *membership.Service
	assets     assets.Releaser
	recorder   flow.Recorder
}

func NewService(
	store repository.Store,
	visits *visit.Service,
	membership *membership.Service,
	releaser assets.Releaser,
	recorder flow.Recorder,
) *Service {
	return &Service{
		store:      store,
		visits:     visits,
		membership: membership,
		assets:     releaser,
		recorder:   recorder,
	}
}

// DeleteAppointment removes an appointment and its references from the
// group, the participants and the recommendation store. When the document is
// already gone but references remain, the call resumes from them.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	started := time.Now()

	var (
		groupID      *uuid.UUID
		participants []uuid.UUID
	)
	appt, err := s.store.Appointments.Get(ctx, id)
	switch {
	case err == nil:
		groupID = appt.GroupID
		if participants, err = s.visits.ResolveParticipants(ctx, appt); err != nil {
			return nil, apperrors.NewInternal(err)
		}
	case errors.Is(err, repository.ErrNotFound):
		groupID, participants, err = s.appointmentTombstone(ctx, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewInternal(err)
	}

	report := s.removeAppointment(ctx, id, groupID, participants, true)
	return report, s.recorder.Finish(ctx, report, model.EventAppointmentDeleted, started)
}

// appointmentTombstone rebuilds the cascade inputs of a deleted appointment
// from the documents still referencing it.
func (s *Service) appointmentTombstone(ctx context.Context, id uuid.UUID) (*uuid.UUID, []uuid.UUID, error) {
	var groupID *uuid.UUID
	group, err := s.store.Groups.FindByAppointment(ctx, id)
	switch {
	case err == nil:
		groupID = &group.ID
	case !errors.Is(err, repository.ErrNotFound):
		return nil, nil, apperrors.NewInternal(err)
	}
	patients, err := s.store.Patients.ListIDsByAppointment(ctx, id)
	if err != nil {
		return nil, nil, apperrors.NewInternal(err)
	}
	if groupID == nil {
		if groupID, err = s.retiredGroup(ctx, patients); err != nil {
			return nil, nil, apperrors.NewInternal(err)
		}
	}
	_, err = s.store.Recommendations.GetByAppointment(ctx, id)
	hasRecommendation := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.NewInternal(err)
	}
	if groupID == nil && len(patients) == 0 && !hasRecommendation {
		return nil, nil, apperrors.NewNotFound("appointment", repository.ErrNotFound)
	}
	return groupID, patients, nil
}

// retiredGroup returns the group a referencing patient still points at when
// that group document is already gone. The group was deleted by an
// interrupted zero-remaining step, so the appointment cascade has to finish
// retiring it.
func (s *Service) retiredGroup(ctx context.Context, patients []uuid.UUID) (*uuid.UUID, error) {
	for _, pid := range patients {
		p, err := s.store.Patients.Get(ctx, pid)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.GroupID == nil {
			continue
		}
		_, err = s.store.Groups.Get(ctx, *p.GroupID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			groupID := *p.GroupID
			return &groupID, nil
		case err != nil:
			return nil, err
		}
	}
	return nil, nil
}

// removeAppointment runs the appointment cascade. With cascadeGroup unset the
// caller is deleting the group itself, so the group steps are skipped.
func (s *Service) removeAppointment(ctx context.Context, id uuid.UUID, groupID *uuid.UUID, participants []uuid.UUID, cascadeGroup bool) *model.Report {
	report := model.NewReport(OpDeleteAppointment, id)

	if _, err := s.store.Appointments.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			report.Fail("delete_appointment_document", err)
			return report
		}
		report.Skipped("delete_appointment_document", "already deleted")
	} else {
		report.Applied("delete_appointment_document", "")
	}

	switch {
	case groupID == nil:
		report.Skipped("pull_from_group", "individual appointment")
	case !cascadeGroup:
		report.Skipped("pull_from_group", "group is being deleted")
	default:
		if err := s.detachFromGroup(ctx, report, id, *groupID); err != nil {
			return report
		}
	}

	referencing, err := s.store.Patients.ListIDsByAppointment(ctx, id)
	if err != nil {
		report.Fail("unlink_participants", err)
		return report
	}
	targets := lo.Uniq(append(append([]uuid.UUID{}, participants...), referencing...))
	if len(targets) == 0 {
		report.Skipped("unlink_participants", "no participants")
	} else {
		if err := s.store.Patients.UnlinkAppointment(ctx, targets, id); err != nil {
			report.Fail("unlink_participants", err)
			return report
		}
		report.Applied("unlink_participants", fmt.Sprintf("%d patients", len(targets)))
	}

	n, err := s.store.Recommendations.DeleteByAppointment(ctx, id)
	switch {
	case err != nil:
		report.Fail("delete_recommendation", err)
	case n == 0:
		report.Skipped("delete_recommendation", "none stored")
	default:
		report.Applied("delete_recommendation", "")
	}
	return report
}

func (s *Service) detachFromGroup(ctx context.Context, report *model.Report, id, groupID uuid.UUID) error {
	err := s.store.Groups.RemoveAppointment(ctx, groupID, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		report.Skipped("pull_from_group", "group no longer exists")
	case err != nil:
		return report.Fail("pull_from_group", err)
	default:
		report.Applied("pull_from_group", groupID.String())
	}

	remaining, err := s.store.Appointments.CountByGroup(ctx, groupID)
	if err != nil {
		return report.Fail("count_group_appointments", err)
	}
	report.Applied("count_group_appointments", fmt.Sprintf("%d remaining", remaining))
	if !ZeroRemainingAppointments(remaining) {
		report.Skipped("zero_remaining_appointments", "group still scheduled")
		return nil
	}

	child, err := s.deleteGroup(ctx, groupID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			report.Skipped("zero_remaining_appointments", "group already deleted")
			return nil
		}
		return report.Fail("zero_remaining_appointments", err)
	}
	report.Nest(child)
	if step, failed := child.Failure(); failed {
		return report.Fail("zero_remaining_appointments", step.Err)
	}
	report.Applied("zero_remaining_appointments", groupID.String())
	return nil
}

// DeleteGroup removes a group, clears its members' affiliation and deletes
// every appointment targeting it.
func (s *Service) DeleteGroup(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	started := time.Now()
	report, err := s.deleteGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return report, s.recorder.Finish(ctx, report, model.EventGroupDeleted, started)
}

func (s *Service) deleteGroup(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	pointing, err := s.store.Patients.ListIDsByGroup(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	scheduled, err := s.store.Appointments.ListByGroup(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	appointments := lo.Map(scheduled, func(a *model.Appointment, _ int) uuid.UUID { return a.ID })

	report := model.NewReport(OpDeleteGroup, id)
	members := pointing
	group, err := s.store.Groups.Delete(ctx, id)
	switch {
	case err == nil:
		report.Applied("delete_group_document", group.Name)
		members = lo.Uniq(append(append([]uuid.UUID{}, group.Patients...), pointing...))
		appointments = lo.Uniq(append(appointments, group.Appointments...))
	case errors.Is(err, repository.ErrNotFound):
		if len(pointing) == 0 && len(appointments) == 0 {
			return nil, apperrors.NewNotFound("group", err)
		}
		report.Skipped("delete_group_document", "already deleted")
	default:
		return nil, apperrors.NewInternal(err)
	}

	cleared, err := s.membership.DetachMembers(ctx, id, members)
	if err != nil {
		report.Fail("detach_members", err)
		return report, nil
	}
	report.Applied("detach_members", fmt.Sprintf("%d cleared", cleared))

	for _, apptID := range appointments {
		child := s.removeAppointment(ctx, apptID, &id, members, false)
		report.Nest(child)
		if step, failed := child.Failure(); failed {
			report.Fail("delete_appointments", step.Err)
			return report, nil
		}
	}
	if len(appointments) == 0 {
		report.Skipped("delete_appointments", "none scheduled")
	} else {
		report.Applied("delete_appointments", fmt.Sprintf("%d appointments", len(appointments)))
	}

	if group == nil {
		report.Skipped("release_avatar", "group document already deleted")
	} else {
		s.release(ctx, report, "release_avatar", group.AvatarURL)
	}
	return report, nil
}

// DeleteActivity detaches an activity from an appointment and its
// participants, deleting the activity document last.
func (s *Service) DeleteActivity(ctx context.Context, appointmentID, activityID uuid.UUID) (*model.Report, error) {
	started := time.Now()
	appt, err := s.store.Appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}

	report := model.NewReport(OpDeleteActivity, activityID)
	if err := s.store.Appointments.PullActivity(ctx, appointmentID, activityID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			report.Fail("pull_from_appointment", err)
			return report, s.recorder.Finish(ctx, report, model.EventActivityDeleted, started)
		}
		report.Skipped("pull_from_appointment", "appointment no longer exists")
	} else {
		report.Applied("pull_from_appointment", appointmentID.String())
	}

	child, err := s.visits.DetachActivity(ctx, appt, activityID)
	report.Nest(child)
	if err != nil {
		report.Fail("detach_from_participants", err)
		return report, s.recorder.Finish(ctx, report, model.EventActivityDeleted, started)
	}
	report.Applied("detach_from_participants", "")

	err = s.store.Activities.Delete(ctx, activityID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		report.Skipped("delete_activity_document", "already deleted")
	case err != nil:
		report.Fail("delete_activity_document", err)
	default:
		report.Applied("delete_activity_document", "")
	}
	return report, s.recorder.Finish(ctx, report, model.EventActivityDeleted, started)
}

// DeletePatient removes a patient from its group, deletes its individual
// appointments and activity memberships, then the patient document itself.
// The document goes last so a retry can still read what to clean up.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	started := time.Now()
	patient, err := s.store.Patients.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("patient", err)
	}

	report := model.NewReport(OpDeletePatient, id)
	finish := func() (*model.Report, error) {
		return report, s.recorder.Finish(ctx, report, model.EventPatientDeleted, started)
	}

	if patient.GroupID == nil {
		report.Skipped("pull_from_group", "no group")
	} else {
		err := s.store.Groups.RemovePatient(ctx, *patient.GroupID, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			report.Skipped("pull_from_group", "group no longer exists")
		case err != nil:
			report.Fail("pull_from_group", err)
			return finish()
		default:
			report.Applied("pull_from_group", patient.GroupID.String())
		}
	}

	individual, err := s.store.Appointments.ListByPatient(ctx, id)
	if err != nil {
		report.Fail("delete_individual_appointments", err)
		return finish()
	}
	for _, appt := range individual {
		child := s.removeAppointment(ctx, appt.ID, nil, []uuid.UUID{id}, false)
		report.Nest(child)
		if step, failed := child.Failure(); failed {
			report.Fail("delete_individual_appointments", step.Err)
			return finish()
		}
	}
	report.Applied("delete_individual_appointments", fmt.Sprintf("%d appointments", len(individual)))

	if err := s.store.Activities.PullMember(ctx, id); err != nil {
		report.Fail("pull_from_activities", err)
		return finish()
	}
	report.Applied("pull_from_activities", "")

	if _, err := s.store.Patients.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		report.Fail("delete_patient_document", err)
		return finish()
	}
	report.Applied("delete_patient_document", "")

	s.release(ctx, report, "release_avatar", patient.AvatarURL)
	for _, m := range patient.Materials {
		s.release(ctx, report, "release_material", m.FileURL)
	}
	return finish()
}

// release hands a file back to the asset store. Failures never stop a
// cascade; they are recorded as skipped steps.
func (s *Service) release(ctx context.Context, report *model.Report, step, url string) {
	if url == "" {
		report.Skipped(step, "no file")
		return
	}
	if s.assets == nil {
		report.Skipped(step, "no asset store configured")
		return
	}
	if err := s.assets.Release(ctx, url); err != nil {
		if s.recorder.Logger != nil {
			s.recorder.Logger.Warn("asset release failed", "url", url, "error", err.Error())
		}
		report.Skipped(step, err.Error())
		return
	}
	report.Applied(step, url)
}
