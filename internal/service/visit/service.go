// Package visit maintains the per-appointment visit rows stored on patients.
package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const (
	OpAttachActivity = "attach_activity"
	OpDetachActivity = "detach_activity"

	// PlaceholderNote stands in for members the recommendation has nothing on yet.
	PlaceholderNote = "• Therapist-note: session still awaiting AI notes."

	maxUpsertAttempts = 3
)

type Service struct {
	store       repository.Store
	concurrency int
}

func NewService(store repository.Store, concurrency int) *Service {
	return &Service{store: store, concurrency: concurrency}
}

// ResolveParticipants returns the patients an appointment currently touches:
// the live member list for a group appointment (empty when the group is gone)
// or the single patient otherwise.
func (s *Service) ResolveParticipants(ctx context.Context, appt *model.Appointment) ([]uuid.UUID, error) {
	switch {
	case appt.Kind == model.AppointmentKindGroup && appt.GroupID != nil:
		group, err := s.store.Groups.Get(ctx, *appt.GroupID)
		if errors.Is(err, repository.ErrNotFound) {
			return []uuid.UUID{}, nil
		}
		if err != nil {
			return nil, err
		}
		return lo.Uniq(group.Patients), nil
	case appt.PatientID != nil:
		return []uuid.UUID{*appt.PatientID}, nil
	default:
		return []uuid.UUID{}, nil
	}
}

// UpsertVisitRow replaces the patient's row for row.AppointmentID. The insert
// only lands when no row exists, so two racing writers never leave two rows;
// the loser retries the remove and insert.
func (s *Service) UpsertVisitRow(ctx context.Context, patientID uuid.UUID, row model.VisitRow) error {
	row.Activities = lo.Uniq(row.Activities)
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		if err := s.store.Patients.RemoveVisitRow(ctx, patientID, row.AppointmentID); err != nil {
			return flow.Lookup("patient", err)
		}
		inserted, err := s.store.Patients.InsertVisitRow(ctx, patientID, row)
		if err != nil {
			return flow.Lookup("patient", err)
		}
		if inserted {
			return nil
		}
	}
	return apperrors.NewInternal(fmt.Errorf("visit row for appointment %s kept changing after %d attempts",
		row.AppointmentID, maxUpsertAttempts))
}

// AttachActivity adds activityID to every participant's visit row for the
// appointment. Participants without a row are left untouched.
func (s *Service) AttachActivity(ctx context.Context, appt *model.Appointment, activityID uuid.UUID) (*model.Report, error) {
	report := model.NewReport(OpAttachActivity, activityID)
	participants, err := s.ResolveParticipants(ctx, appt)
	if err != nil {
		return report, report.Fail("resolve_participants", err)
	}
	err = flow.ForEach(ctx, s.concurrency, participants, func(ctx context.Context, id uuid.UUID) error {
		if err := s.store.Patients.PullVisitActivity(ctx, id, appt.ID, activityID); err != nil {
			return err
		}
		return s.store.Patients.AddVisitActivity(ctx, id, appt.ID, activityID)
	})
	if err != nil {
		return report, report.Fail("attach_to_visit_rows", err)
	}
	report.Applied("attach_to_visit_rows", fmt.Sprintf("%d participants", len(participants)))
	return report, nil
}

// DetachActivity removes activityID from every visit row of the
// participants and of any former member still holding a row for the
// appointment, then from the appointment itself when it still exists.
func (s *Service) DetachActivity(ctx context.Context, appt *model.Appointment, activityID uuid.UUID) (*model.Report, error) {
	report := model.NewReport(OpDetachActivity, activityID)
	live, err := s.ResolveParticipants(ctx, appt)
	if err != nil {
		return report, report.Fail("resolve_participants", err)
	}
	referencing, err := s.store.Patients.ListIDsByAppointment(ctx, appt.ID)
	if err != nil {
		return report, report.Fail("resolve_participants", err)
	}
	participants := lo.Uniq(append(append([]uuid.UUID{}, live...), referencing...))
	if len(participants) == 0 {
		report.Skipped("detach_from_visit_rows", "no participants")
	} else {
		err = flow.ForEach(ctx, s.concurrency, participants, func(ctx context.Context, id uuid.UUID) error {
			return s.store.Patients.PullActivity(ctx, []uuid.UUID{id}, activityID)
		})
		if err != nil {
			return report, report.Fail("detach_from_visit_rows", err)
		}
		report.Applied("detach_from_visit_rows", fmt.Sprintf("%d participants", len(participants)))
	}

	err = s.store.Appointments.PullActivity(ctx, appt.ID, activityID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		report.Skipped("pull_from_appointment", "appointment no longer exists")
	case err != nil:
		return report, report.Fail("pull_from_appointment", err)
	default:
		report.Applied("pull_from_appointment", "")
	}
	return report, nil
}

// ComposeNotes renders the recommendation's per-member insights as prompt
// notes, one block per selected member.
func ComposeNotes(rec *model.Recommendation, memberIDs []uuid.UUID) string {
	if len(memberIDs) == 0 {
		return "### No specific members selected\n" + PlaceholderNote
	}
	blocks := lo.Map(memberIDs, func(id uuid.UUID, _ int) string {
		insights := rec.InsightsFor(id)
		if len(insights) == 0 {
			return PlaceholderNote
		}
		lines := lo.Map(insights, func(in model.Insight, _ int) string {
			return fmt.Sprintf("• [%s] %s", in.Time, in.Text)
		})
		return strings.Join(lines, "\n")
	})
	return strings.Join(blocks, "\n\n")
}
