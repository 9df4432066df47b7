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
	"github.com/jwalitptl/practice-api/internal/repository"
)

type activityDoc struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Materials   []string  `bson:"materials"`
	Members     []string  `bson:"members"`
	Goals       []string  `bson:"goals"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toActivityDoc(a *model.Activity) activityDoc {
	return activityDoc{
		ID:          uuidToStr(a.ID),
		OwnerID:     uuidToStr(a.OwnerID),
		Name:        a.Name,
		Description: a.Description,
		Materials:   orEmpty(a.Materials),
		Members:     idsToStrs(lo.Uniq(a.Members)),
		Goals:       orEmpty(a.Goals),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d activityDoc) toModel() *model.Activity {
	return &model.Activity{
		Base: model.Base{
			ID:        strToUUID(d.ID),
			OwnerID:   strToUUID(d.OwnerID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		Name:        d.Name,
		Description: d.Description,
		Materials:   d.Materials,
		Members:     strsToIDs(d.Members),
		Goals:       d.Goals,
	}
}

type activityRepository struct {
	coll *mongo.Collection
}

func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	if _, err := r.coll.InsertOne(ctx, toActivityDoc(activity)); err != nil {
		return fmt.Errorf("failed to create activity: %w", translate(err))
	}
	return nil
}

func (r *activityRepository) Get(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var doc activityDoc
	if err := r.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *activityRepository) Update(ctx context.Context, activity *model.Activity) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(activity.ID), bson.M{"$set": bson.M{
		"name":        activity.Name,
		"description": activity.Description,
		"materials":   orEmpty(activity.Materials),
		"goals":       orEmpty(activity.Goals),
		"updated_at":  activity.UpdatedAt,
	}}))
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	return nil
}

func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("failed to delete activity: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *activityRepository) PullMember(ctx context.Context, patientID uuid.UUID) error {
	p := uuidToStr(patientID)
	if _, err := r.coll.UpdateMany(ctx, bson.M{"members": p}, bson.M{"$pull": bson.M{"members": p}}); err != nil {
		return fmt.Errorf("failed to pull activity member: %w", err)
	}
	return nil
}
