package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/jwalitptl/practice-api/internal/model"
)

type individualInsightDoc struct {
	Patient  string          `bson:"patient"`
	Insights []model.Insight `bson:"insights"`
}

type recommendationDoc struct {
	ID                 string                 `bson:"_id"`
	OwnerID            string                 `bson:"owner_id"`
	Appointment        string                 `bson:"appointment"`
	GroupInsights      []model.Insight        `bson:"group_insights"`
	IndividualInsights []individualInsightDoc `bson:"individual_insights"`
	Materials          []string               `bson:"materials"`
	CreatedAt          time.Time              `bson:"created_at"`
	UpdatedAt          time.Time              `bson:"updated_at"`
}

func toRecommendationDoc(rec *model.Recommendation) recommendationDoc {
	return recommendationDoc{
		ID:            uuidToStr(rec.ID),
		OwnerID:       uuidToStr(rec.OwnerID),
		Appointment:   uuidToStr(rec.AppointmentID),
		GroupInsights: orEmpty(rec.GroupInsights),
		IndividualInsights: lo.Map(orEmpty(rec.IndividualInsights), func(i model.IndividualInsight, _ int) individualInsightDoc {
			return individualInsightDoc{Patient: uuidToStr(i.PatientID), Insights: orEmpty(i.Insights)}
		}),
		Materials: orEmpty(rec.Materials),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (d recommendationDoc) toModel() *model.Recommendation {
	return &model.Recommendation{
		Base: model.Base{
			ID:        strToUUID(d.ID),
			OwnerID:   strToUUID(d.OwnerID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		AppointmentID: strToUUID(d.Appointment),
		GroupInsights: d.GroupInsights,
		IndividualInsights: lo.Map(d.IndividualInsights, func(i individualInsightDoc, _ int) model.IndividualInsight {
			return model.IndividualInsight{PatientID: strToUUID(i.Patient), Insights: i.Insights}
		}),
		Materials: d.Materials,
	}
}

type recommendationRepository struct {
	coll *mongo.Collection
}

// Create relies on the unique appointment index to reject a second
// recommendation for the same appointment.
func (r *recommendationRepository) Create(ctx context.Context, rec *model.Recommendation) error {
	if _, err := r.coll.InsertOne(ctx, toRecommendationDoc(rec)); err != nil {
		return fmt.Errorf("failed to create recommendation: %w", translate(err))
	}
	return nil
}

func (r *recommendationRepository) findOne(ctx context.Context, filter bson.M) (*model.Recommendation, error) {
	var doc recommendationDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *recommendationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error) {
	return r.findOne(ctx, byID(id))
}

func (r *recommendationRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Recommendation, error) {
	return r.findOne(ctx, bson.M{"appointment": uuidToStr(appointmentID)})
}

func (r *recommendationRepository) DeleteByAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"appointment": uuidToStr(appointmentID)})
	if err != nil {
		return 0, fmt.Errorf("failed to delete recommendation: %w", err)
	}
	return res.DeletedCount, nil
}
