package model

import "github.com/google/uuid"

type IndividualInsight struct {
	PatientID uuid.UUID `json:"patient"`
	Insights  []Insight `json:"insights"`
}

// Recommendation is owned by exactly one appointment.
type Recommendation struct {
	Base
	AppointmentID      uuid.UUID           `json:"appointment"`
	GroupInsights      []Insight           `json:"group_insights"`
	IndividualInsights []IndividualInsight `json:"individual_insights"`
	Materials          []string            `json:"materials"`
}

// InsightsFor returns the insights recorded for one patient.
func (r *Recommendation) InsightsFor(patientID uuid.UUID) []Insight {
	if r == nil {
		return nil
	}
	for _, ind := range r.IndividualInsights {
		if ind.PatientID == patientID {
			return ind.Insights
		}
	}
	return nil
}
