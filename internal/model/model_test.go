package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name string
		now  time.Time
		want AppointmentStatus
	}{
		{"before start", start.Add(-time.Second), AppointmentStatusUpcoming},
		{"at start", start, AppointmentStatusOngoing},
		{"at end", end, AppointmentStatusOngoing},
		{"after end", end.Add(time.Second), AppointmentStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.now, start, end))
		})
	}
}

func TestValidateTarget(t *testing.T) {
	id := uuid.New()
	start := time.Now()
	end := start.Add(time.Hour)

	tests := []struct {
		name    string
		appt    Appointment
		wantErr bool
	}{
		{"group", Appointment{Kind: AppointmentKindGroup, GroupID: &id, Start: start, End: end}, false},
		{"individual", Appointment{Kind: AppointmentKindIndividual, PatientID: &id, Start: start, End: end}, false},
		{"group without group", Appointment{Kind: AppointmentKindGroup, PatientID: &id, Start: start, End: end}, true},
		{"both targets", Appointment{Kind: AppointmentKindIndividual, GroupID: &id, PatientID: &id, Start: start, End: end}, true},
		{"unknown kind", Appointment{Kind: "workshop", GroupID: &id, Start: start, End: end}, true},
		{"empty slot", Appointment{Kind: AppointmentKindGroup, GroupID: &id, Start: start, End: start}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.appt.ValidateTarget()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReport(t *testing.T) {
	boom := errors.New("boom")
	r := NewReport("delete_group", uuid.New())
	r.Applied("delete_group_document", "")
	r.Skipped("release_avatar", "no file")

	_, failed := r.Failure()
	assert.False(t, failed)

	child := NewReport("delete_appointment", uuid.New())
	assert.Equal(t, boom, child.Fail("unlink_participants", boom))
	r.Nest(child)
	r.Nest(nil)
	require.Len(t, r.Nested, 1)

	step, failed := r.Failure()
	require.True(t, failed)
	assert.Equal(t, "unlink_participants", step.Step)
	assert.ErrorIs(t, step.Err, boom)

	_, ok := r.Step("unlink_participants")
	assert.False(t, ok, "Step only searches the report itself")
	s, ok := r.Step("release_avatar")
	require.True(t, ok)
	assert.Equal(t, StepSkipped, s.Status)

	var nilReport *Report
	_, failed = nilReport.Failure()
	assert.False(t, failed)
}

func TestInsightsFor(t *testing.T) {
	p := uuid.New()
	rec := &Recommendation{IndividualInsights: []IndividualInsight{{PatientID: p, Insights: []Insight{{Text: "x"}}}}}
	assert.Len(t, rec.InsightsFor(p), 1)
	assert.Nil(t, rec.InsightsFor(uuid.New()))

	var none *Recommendation
	assert.Nil(t, none.InsightsFor(p))
}
