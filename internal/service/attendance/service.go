// Package attendance keeps the attendance rows on patients in step with the
// appointment schedule.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

const OpRetimeAppointment = "retime_appointment"

type Service struct {
	store    repository.Store
	recorder flow.Recorder
}

func NewService(store repository.Store, recorder flow.Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// RetimeAppointment moves an appointment and rewrites the date of every
// attendance row that references it. A zero end keeps the current duration.
// The report's propagate step carries the number of patients updated.
func (s *Service) RetimeAppointment(ctx context.Context, id uuid.UUID, start, end time.Time) (*model.Report, error) {
	started := time.Now()
	appt, err := s.store.Appointments.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("appointment", err)
	}
	if end.IsZero() {
		end = start.Add(appt.End.Sub(appt.Start))
	}
	if !end.After(start) {
		return nil, apperrors.NewBadRequest("appointment must end after it starts", nil)
	}

	report := model.NewReport(OpRetimeAppointment, id)
	err = s.store.Appointments.SetSchedule(ctx, id, start, end)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, flow.Lookup("appointment", err)
	case err != nil:
		report.Fail("set_schedule", err)
		return report, s.recorder.Finish(ctx, report, model.EventAppointmentRetimed, started)
	}
	report.Applied("set_schedule", fmt.Sprintf("%s - %s", start.Format(time.RFC3339), end.Format(time.RFC3339)))

	matched, err := s.store.Patients.RetimeAttendance(ctx, id, start)
	if err != nil {
		report.Fail("propagate_attendance", err)
	} else {
		report.Applied("propagate_attendance", fmt.Sprintf("%d", matched))
	}
	return report, s.recorder.Finish(ctx, report, model.EventAppointmentRetimed, started)
}
