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
)

type groupDoc struct {
	ID           string    `bson:"_id"`
	OwnerID      string    `bson:"owner_id"`
	Name         string    `bson:"name"`
	AvatarURL    string    `bson:"avatar_url,omitempty"`
	Patients     []string  `bson:"patients"`
	Goals        []string  `bson:"goals"`
	Appointments []string  `bson:"appointments"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toGroupDoc(g *model.Group) groupDoc {
	return groupDoc{
		ID:           uuidToStr(g.ID),
		OwnerID:      uuidToStr(g.OwnerID),
		Name:         g.Name,
		AvatarURL:    g.AvatarURL,
		Patients:     idsToStrs(lo.Uniq(g.Patients)),
		Goals:        orEmpty(g.Goals),
		Appointments: idsToStrs(lo.Uniq(g.Appointments)),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func (d groupDoc) toModel() *model.Group {
	return &model.Group{
		Base: model.Base{
			ID:        strToUUID(d.ID),
			OwnerID:   strToUUID(d.OwnerID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		Name:         d.Name,
		AvatarURL:    d.AvatarURL,
		Patients:     strsToIDs(d.Patients),
		Goals:        d.Goals,
		Appointments: strsToIDs(d.Appointments),
	}
}

type groupRepository struct {
	coll *mongo.Collection
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	if _, err := r.coll.InsertOne(ctx, toGroupDoc(group)); err != nil {
		return fmt.Errorf("failed to create group: %w", translate(err))
	}
	return nil
}

func (r *groupRepository) Get(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var doc groupDoc
	if err := r.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to get group: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *groupRepository) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Group, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"owner_id": uuidToStr(ownerID)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var docs []groupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return lo.Map(docs, func(d groupDoc, _ int) *model.Group { return d.toModel() }), nil
}

func (r *groupRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var doc groupDoc
	if err := r.coll.FindOneAndDelete(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to delete group: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *groupRepository) SetGoals(ctx context.Context, id uuid.UUID, goals []string) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id), bson.M{"$set": bson.M{
		"goals":      orEmpty(goals),
		"updated_at": time.Now().UTC(),
	}}))
	if err != nil {
		return fmt.Errorf("failed to set group goals: %w", err)
	}
	return nil
}

func (r *groupRepository) update(ctx context.Context, id uuid.UUID, op, field string, value uuid.UUID) error {
	if err := requireMatch(r.coll.UpdateOne(ctx, byID(id), bson.M{op: bson.M{field: uuidToStr(value)}})); err != nil {
		return fmt.Errorf("failed to update group %s: %w", field, err)
	}
	return nil
}

func (r *groupRepository) AddPatient(ctx context.Context, id, patientID uuid.UUID) error {
	return r.update(ctx, id, "$addToSet", "patients", patientID)
}

func (r *groupRepository) RemovePatient(ctx context.Context, id, patientID uuid.UUID) error {
	return r.update(ctx, id, "$pull", "patients", patientID)
}

func (r *groupRepository) AddAppointment(ctx context.Context, id, appointmentID uuid.UUID) error {
	return r.update(ctx, id, "$addToSet", "appointments", appointmentID)
}

func (r *groupRepository) RemoveAppointment(ctx context.Context, id, appointmentID uuid.UUID) error {
	return r.update(ctx, id, "$pull", "appointments", appointmentID)
}

func (r *groupRepository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Group, error) {
	var doc groupDoc
	if err := r.coll.FindOne(ctx, bson.M{"appointments": uuidToStr(appointmentID)}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to find group by appointment: %w", translate(err))
	}
	return doc.toModel(), nil
}
