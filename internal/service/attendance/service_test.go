package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/servicetest"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

func TestRetimeAppointment(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p1 := f.Patient(t, "Ana")
	p2 := f.Patient(t, "Ben")
	g := f.Group(t, "Tuesday", p1.ID, p2.ID)
	a := f.GroupAppointment(t, g.ID, 0)
	other := f.GroupAppointment(t, g.ID, 5)

	start := a.Start.Add(48 * time.Hour)
	report, err := f.Attendance.RetimeAppointment(ctx, a.ID, start, time.Time{})
	require.NoError(t, err)
	s, ok := report.Step("propagate_attendance")
	require.True(t, ok)
	assert.Equal(t, "2", s.Detail)

	stored := f.LoadAppointment(t, a.ID)
	assert.True(t, stored.Start.Equal(start))
	assert.Equal(t, time.Hour, stored.End.Sub(stored.Start))
	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		for _, row := range f.LoadPatient(t, id).Attendance {
			switch row.AppointmentID {
			case a.ID:
				assert.True(t, row.Date.Equal(start))
			case other.ID:
				assert.True(t, row.Date.Equal(other.Start))
			}
		}
	}
	assert.Contains(t, f.EventTypes(), model.EventAppointmentRetimed)
}

func TestRetimeAppointment_Errors(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)

	_, err := f.Attendance.RetimeAppointment(ctx, a.ID, a.Start, a.Start)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.Attendance.RetimeAppointment(ctx, a.ID, a.Start, a.Start.Add(-time.Minute))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.Attendance.RetimeAppointment(ctx, uuid.New(), a.Start, time.Time{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRetimeAppointment_PropagationFailure(t *testing.T) {
	ctx := context.Background()
	f := servicetest.New(t)
	p := f.Patient(t, "Ana")
	a := f.IndividualAppointment(t, p.ID, 0)
	start := a.Start.Add(time.Hour)

	f.Mem.InjectFault("patients.RetimeAttendance", errors.New("write timeout"))
	_, err := f.Attendance.RetimeAppointment(ctx, a.ID, start, time.Time{})
	assert.True(t, apperrors.Is(err, apperrors.ErrPartialCascade))

	f.Mem.ClearFaults()
	_, err = f.Attendance.RetimeAppointment(ctx, a.ID, start, time.Time{})
	require.NoError(t, err)
	assert.True(t, f.LoadPatient(t, p.ID).Attendance[0].Date.Equal(start))
}
