package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type appointmentDoc struct {
	ID             string          `bson:"_id"`
	OwnerID        string          `bson:"owner_id"`
	Type           string          `bson:"type"`
	Group          *string         `bson:"group,omitempty"`
	Patient        *string         `bson:"patient,omitempty"`
	Start          time.Time       `bson:"date_time_start"`
	End            time.Time       `bson:"date_time_end"`
	Status         string          `bson:"status"`
	Activities     []string        `bson:"activities"`
	Recommendation *string         `bson:"recommendation"`
	AIInsights     []model.Insight `bson:"ai_insights"`
	CreatedAt      time.Time       `bson:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at"`
}

func toAppointmentDoc(a *model.Appointment) appointmentDoc {
	return appointmentDoc{
		ID:             uuidToStr(a.ID),
		OwnerID:        uuidToStr(a.OwnerID),
		Type:           string(a.Kind),
		Group:          ptrUUIDToStr(a.GroupID),
		Patient:        ptrUUIDToStr(a.PatientID),
		Start:          a.Start,
		End:            a.End,
		Status:         string(a.Status),
		Activities:     idsToStrs(lo.Uniq(a.Activities)),
		Recommendation: ptrUUIDToStr(a.Recommendation),
		AIInsights:     orEmpty(a.AIInsights),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (d appointmentDoc) toModel() *model.Appointment {
	return &model.Appointment{
		Base: model.Base{
			ID:        strToUUID(d.ID),
			OwnerID:   strToUUID(d.OwnerID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		Kind:           model.AppointmentKind(d.Type),
		GroupID:        ptrStrToUUID(d.Group),
		PatientID:      ptrStrToUUID(d.Patient),
		Start:          d.Start,
		End:            d.End,
		Status:         model.AppointmentStatus(d.Status),
		Activities:     strsToIDs(d.Activities),
		Recommendation: ptrStrToUUID(d.Recommendation),
		AIInsights:     d.AIInsights,
	}
}

type appointmentRepository struct {
	coll *mongo.Collection
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	if _, err := r.coll.InsertOne(ctx, toAppointmentDoc(appointment)); err != nil {
		return fmt.Errorf("failed to create appointment: %w", translate(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var doc appointmentDoc
	if err := r.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *appointmentRepository) find(ctx context.Context, filter bson.M) ([]*model.Appointment, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date_time_start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	var docs []appointmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return lo.Map(docs, func(d appointmentDoc, _ int) *model.Appointment { return d.toModel() }), nil
}

func (r *appointmentRepository) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{"owner_id": uuidToStr(ownerID)})
}

func (r *appointmentRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{"group": uuidToStr(groupID)})
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return r.find(ctx, bson.M{"patient": uuidToStr(patientID)})
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var doc appointmentDoc
	if err := r.coll.FindOneAndDelete(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to delete appointment: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *appointmentRepository) UpdateTarget(ctx context.Context, appointment *model.Appointment) error {
	set := bson.M{
		"type":       string(appointment.Kind),
		"updated_at": appointment.UpdatedAt,
	}
	unset := bson.M{}
	if appointment.GroupID != nil {
		set["group"] = uuidToStr(*appointment.GroupID)
		unset["patient"] = ""
	}
	if appointment.PatientID != nil {
		set["patient"] = uuidToStr(*appointment.PatientID)
		unset["group"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if err := requireMatch(r.coll.UpdateOne(ctx, byID(appointment.ID), update)); err != nil {
		return fmt.Errorf("failed to update appointment target: %w", err)
	}
	return nil
}

func (r *appointmentRepository) SetSchedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id), bson.M{"$set": bson.M{
		"date_time_start": start,
		"date_time_end":   end,
		"status":          string(model.DeriveStatus(time.Now(), start, end)),
		"updated_at":      time.Now().UTC(),
	}}))
	if err != nil {
		return fmt.Errorf("failed to set appointment schedule: %w", err)
	}
	return nil
}

func (r *appointmentRepository) CountByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"group": uuidToStr(groupID)})
	if err != nil {
		return 0, fmt.Errorf("failed to count group appointments: %w", err)
	}
	return n, nil
}

func (r *appointmentRepository) AddActivity(ctx context.Context, id, activityID uuid.UUID) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$addToSet": bson.M{"activities": uuidToStr(activityID)}}))
	if err != nil {
		return fmt.Errorf("failed to add appointment activity: %w", err)
	}
	return nil
}

func (r *appointmentRepository) PullActivity(ctx context.Context, id, activityID uuid.UUID) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$pull": bson.M{"activities": uuidToStr(activityID)}}))
	if err != nil {
		return fmt.Errorf("failed to pull appointment activity: %w", err)
	}
	return nil
}

func (r *appointmentRepository) LinkRecommendation(ctx context.Context, id, recommendationID uuid.UUID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": uuidToStr(id), "recommendation": nil},
		bson.M{"$set": bson.M{"recommendation": uuidToStr(recommendationID)}})
	if err != nil {
		return fmt.Errorf("failed to link recommendation: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("failed to check appointment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to link recommendation: %w", repository.ErrNotFound)
	}
	return fmt.Errorf("failed to link recommendation: %w", repository.ErrDuplicate)
}
