package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jwalitptl/practice-api/internal/repository"
)

const (
	patientsCollection        = "patients"
	groupsCollection          = "groups"
	appointmentsCollection    = "appointments"
	activitiesCollection      = "activities"
	recommendationsCollection = "recommendations"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// DB holds the client and the database every repository reads from.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &DB{client: client, db: client.Database(cfg.Database)}, nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Repositories wires every collection into the repository bundle.
func (d *DB) Repositories() repository.Store {
	return repository.Store{
		Patients:        &patientRepository{coll: d.db.Collection(patientsCollection)},
		Groups:          &groupRepository{coll: d.db.Collection(groupsCollection)},
		Appointments:    &appointmentRepository{coll: d.db.Collection(appointmentsCollection)},
		Activities:      &activityRepository{coll: d.db.Collection(activitiesCollection)},
		Recommendations: &recommendationRepository{coll: d.db.Collection(recommendationsCollection)},
	}
}

// EnsureIndexes creates the indexes the cascade filters rely on.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	collections := map[string][]mongo.IndexModel{
		patientsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "group", Value: 1}}},
			{Keys: bson.D{{Key: "appointments", Value: 1}}},
			{Keys: bson.D{{Key: "visit_history.appointment", Value: 1}}},
			{Keys: bson.D{{Key: "attendance.appointment", Value: 1}}},
		},
		groupsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "appointments", Value: 1}}},
		},
		appointmentsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date_time_start", Value: 1}}},
			{Keys: bson.D{{Key: "group", Value: 1}}},
			{Keys: bson.D{{Key: "patient", Value: 1}}},
		},
		activitiesCollection: {
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		recommendationsCollection: {
			{
				Keys:    bson.D{{Key: "appointment", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_recommendation_per_appointment"),
			},
		},
	}
	for name, models := range collections {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func uuidToStr(id uuid.UUID) string { return id.String() }
func strToUUID(s string) uuid.UUID  { u, _ := uuid.Parse(s); return u }

func ptrUUIDToStr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func ptrStrToUUID(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	u, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &u
}

// idsToStrs never returns nil so array operators always find an array.
func idsToStrs(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func strsToIDs(strs []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		out = append(out, strToUUID(s))
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func byID(id uuid.UUID) bson.M {
	return bson.M{"_id": uuidToStr(id)}
}

func translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	default:
		return err
	}
}

// requireMatch turns a zero-match single-document update into ErrNotFound.
func requireMatch(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type idDoc struct {
	ID string `bson:"_id"`
}

func decodeIDs(ctx context.Context, cursor *mongo.Cursor) ([]uuid.UUID, error) {
	var docs []idDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, strToUUID(d.ID))
	}
	return ids, nil
}

func idsOnly() *options.FindOptionsBuilder {
	return options.Find().SetProjection(bson.M{"_id": 1})
}
