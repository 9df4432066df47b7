// Package membership keeps Patient.group and Group.patients pointing at each
// other, along with the group appointment references copied onto members.
package membership

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
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const (
	OpSetGroupMembership = "set_group_membership"
	OpCreateGroup        = "create_group"
)

type Service struct {
	store       repository.Store
	recorder    flow.Recorder
	concurrency int
}

func NewService(store repository.Store, recorder flow.Recorder, concurrency int) *Service {
	return &Service{store: store, recorder: recorder, concurrency: concurrency}
}

// SetGroupMembership moves a patient into newGroupID, or out of any group when
// it is nil. Every step is idempotent, so repeating the call converges.
func (s *Service) SetGroupMembership(ctx context.Context, patientID uuid.UUID, newGroupID *uuid.UUID) (*model.Report, error) {
	started := time.Now()
	report, err := s.setGroupMembership(ctx, patientID, newGroupID)
	if err != nil {
		return nil, err
	}
	return report, s.recorder.Finish(ctx, report, model.EventMembershipChanged, started)
}

func (s *Service) setGroupMembership(ctx context.Context, patientID uuid.UUID, newGroupID *uuid.UUID) (*model.Report, error) {
	patient, err := s.store.Patients.Get(ctx, patientID)
	if err != nil {
		return nil, flow.Lookup("patient", err)
	}
	var next *model.Group
	if newGroupID != nil {
		if next, err = s.store.Groups.Get(ctx, *newGroupID); err != nil {
			return nil, flow.Lookup("group", err)
		}
		if next.OwnerID != patient.OwnerID {
			return nil, apperrors.NewInvariantViolation("group belongs to a different owner", nil)
		}
	}

	report := model.NewReport(OpSetGroupMembership, patientID)
	if err := s.leavePreviousGroup(ctx, report, patient, newGroupID); err != nil {
		return report, nil
	}

	if next != nil {
		if err := s.store.Groups.AddPatient(ctx, next.ID, patientID); err != nil {
			report.Fail("add_to_group", err)
			return report, nil
		}
		report.Applied("add_to_group", next.ID.String())
		if err := s.store.Patients.AddAppointments(ctx, patientID, next.Appointments); err != nil {
			report.Fail("copy_group_appointments", err)
			return report, nil
		}
		report.Applied("copy_group_appointments", fmt.Sprintf("%d appointments", len(next.Appointments)))
	} else {
		report.Skipped("add_to_group", "no target group")
	}

	if err := s.store.Patients.SetGroup(ctx, patientID, newGroupID); err != nil {
		report.Fail("set_patient_group", err)
		return report, nil
	}
	report.Applied("set_patient_group", "")
	return report, nil
}

func (s *Service) leavePreviousGroup(ctx context.Context, report *model.Report, patient *model.Patient, newGroupID *uuid.UUID) error {
	prev := patient.GroupID
	if prev == nil || (newGroupID != nil && *prev == *newGroupID) {
		report.Skipped("leave_previous_group", "no previous group")
		return nil
	}
	old, err := s.store.Groups.Get(ctx, *prev)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			report.Skipped("leave_previous_group", "previous group no longer exists")
			return nil
		}
		return report.Fail("leave_previous_group", err)
	}
	if err := s.store.Groups.RemovePatient(ctx, old.ID, patient.ID); err != nil {
		return report.Fail("leave_previous_group", err)
	}
	report.Applied("leave_previous_group", old.ID.String())
	if err := s.store.Patients.PullAppointments(ctx, patient.ID, old.Appointments); err != nil {
		return report.Fail("drop_previous_appointments", err)
	}
	report.Applied("drop_previous_appointments", fmt.Sprintf("%d appointments", len(old.Appointments)))
	return nil
}

type CreateGroupInput struct {
	OwnerID   uuid.UUID
	Name      string
	AvatarURL string
	Goals     []string
	Members   []uuid.UUID
}

// CreateGroup inserts the group and then joins every member to it.
func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (*model.Group, *model.Report, error) {
	started := time.Now()
	members := lo.Uniq(in.Members)
	if len(members) == 0 {
		return nil, nil, apperrors.NewInvariantViolation("invalid member list", nil)
	}
	owned, err := s.store.Patients.CountOwned(ctx, in.OwnerID, members)
	if err != nil {
		return nil, nil, apperrors.NewInternal(err)
	}
	if owned != int64(len(members)) {
		return nil, nil, apperrors.NewInvariantViolation("invalid member list", nil)
	}

	group := &model.Group{
		Name:         in.Name,
		AvatarURL:    in.AvatarURL,
		Goals:        lo.Uniq(in.Goals),
		Patients:     []uuid.UUID{},
		Appointments: []uuid.UUID{},
	}
	group.OwnerID = in.OwnerID
	group.Touch(time.Now().UTC())
	if err := s.store.Groups.Create(ctx, group); err != nil {
		return nil, nil, apperrors.NewInternal(err)
	}

	report := model.NewReport(OpCreateGroup, group.ID)
	report.Applied("insert_group", group.Name)

	reports := make([]*model.Report, len(members))
	index := make(map[uuid.UUID]int, len(members))
	for i, id := range members {
		index[id] = i
	}
	joinErr := flow.ForEach(ctx, s.concurrency, members, func(ctx context.Context, id uuid.UUID) error {
		r, err := s.setGroupMembership(ctx, id, &group.ID)
		reports[index[id]] = r
		return err
	})
	for _, r := range reports {
		report.Nest(r)
	}
	if joinErr != nil {
		report.Fail("join_members", joinErr)
	} else if _, failed := report.Failure(); !failed {
		report.Applied("join_members", fmt.Sprintf("%d members", len(members)))
		group.Patients = members
	}

	if err := s.recorder.Finish(ctx, report, model.EventMembershipChanged, started); err != nil {
		return group, report, err
	}
	return group, report, nil
}

// DetachMembers clears Patient.group on members still pointing at groupID.
// Members already reassigned elsewhere are left alone.
func (s *Service) DetachMembers(ctx context.Context, groupID uuid.UUID, memberIDs []uuid.UUID) (int64, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}
	return s.store.Patients.ClearGroup(ctx, lo.Uniq(memberIDs), groupID)
}
