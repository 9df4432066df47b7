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

type visitRowDoc struct {
	Appointment string          `bson:"appointment"`
	Date        time.Time       `bson:"date"`
	Type        string          `bson:"type"`
	Note        string          `bson:"note"`
	AIInsights  []model.Insight `bson:"ai_insights"`
	Activities  []string        `bson:"activities"`
}

type attendanceDoc struct {
	Appointment string    `bson:"appointment"`
	Date        time.Time `bson:"date"`
	Status      string    `bson:"status"`
	Progress    int       `bson:"progress"`
}

type materialDoc struct {
	Appointment string    `bson:"appointment"`
	Activity    string    `bson:"activity"`
	VisitDate   time.Time `bson:"visit_date"`
	FileURL     string    `bson:"file_url"`
	Filename    string    `bson:"filename"`
}

type goalEventDoc struct {
	ActivityName string    `bson:"activity_name"`
	OnDate       time.Time `bson:"on_date"`
}

type goalProgressDoc struct {
	Name       string         `bson:"name"`
	Associated []goalEventDoc `bson:"associated"`
	Progress   int            `bson:"progress"`
	Comment    string         `bson:"comment"`
	StartDate  time.Time      `bson:"start_date"`
	TargetDate *time.Time     `bson:"target_date,omitempty"`
}

type patientDoc struct {
	ID           string            `bson:"_id"`
	OwnerID      string            `bson:"owner_id"`
	Name         string            `bson:"name"`
	Age          int               `bson:"age,omitempty"`
	Address      string            `bson:"address,omitempty"`
	Grade        string            `bson:"grade"`
	PastHistory  []string          `bson:"past_history"`
	AvatarURL    string            `bson:"avatar_url,omitempty"`
	Group        *string           `bson:"group,omitempty"`
	Appointments []string          `bson:"appointments"`
	VisitHistory []visitRowDoc     `bson:"visit_history"`
	Attendance   []attendanceDoc   `bson:"attendance"`
	Materials    []materialDoc     `bson:"materials"`
	Goals        []string          `bson:"goals"`
	GoalProgress []goalProgressDoc `bson:"goal_progress"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

func toVisitRowDoc(row model.VisitRow) visitRowDoc {
	return visitRowDoc{
		Appointment: uuidToStr(row.AppointmentID),
		Date:        row.Date,
		Type:        string(row.Kind),
		Note:        row.Note,
		AIInsights:  orEmpty(row.AIInsights),
		Activities:  idsToStrs(lo.Uniq(row.Activities)),
	}
}

func toAttendanceDoc(row model.AttendanceRow) attendanceDoc {
	return attendanceDoc{
		Appointment: uuidToStr(row.AppointmentID),
		Date:        row.Date,
		Status:      string(row.Status),
		Progress:    row.Progress,
	}
}

func toMaterialDoc(m model.Material) materialDoc {
	return materialDoc{
		Appointment: uuidToStr(m.AppointmentID),
		Activity:    uuidToStr(m.ActivityID),
		VisitDate:   m.VisitDate,
		FileURL:     m.FileURL,
		Filename:    m.Filename,
	}
}

func toGoalProgressDocs(progress []model.GoalProgress) []goalProgressDoc {
	return lo.Map(orEmpty(progress), func(g model.GoalProgress, _ int) goalProgressDoc {
		return goalProgressDoc{
			Name: g.Name,
			Associated: lo.Map(orEmpty(g.Associated), func(e model.GoalEvent, _ int) goalEventDoc {
				return goalEventDoc{ActivityName: e.ActivityName, OnDate: e.OnDate}
			}),
			Progress:   g.Progress,
			Comment:    g.Comment,
			StartDate:  g.StartDate,
			TargetDate: g.TargetDate,
		}
	})
}

func toPatientDoc(p *model.Patient) patientDoc {
	return patientDoc{
		ID:           uuidToStr(p.ID),
		OwnerID:      uuidToStr(p.OwnerID),
		Name:         p.Name,
		Age:          p.Age,
		Address:      p.Address,
		Grade:        p.Grade,
		PastHistory:  orEmpty(p.PastHistory),
		AvatarURL:    p.AvatarURL,
		Group:        ptrUUIDToStr(p.GroupID),
		Appointments: idsToStrs(p.Appointments),
		VisitHistory: lo.Map(orEmpty(p.VisitHistory), func(v model.VisitRow, _ int) visitRowDoc { return toVisitRowDoc(v) }),
		Attendance:   lo.Map(orEmpty(p.Attendance), func(a model.AttendanceRow, _ int) attendanceDoc { return toAttendanceDoc(a) }),
		Materials:    lo.Map(orEmpty(p.Materials), func(m model.Material, _ int) materialDoc { return toMaterialDoc(m) }),
		Goals:        orEmpty(p.Goals),
		GoalProgress: toGoalProgressDocs(p.GoalProgress),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d patientDoc) toModel() *model.Patient {
	return &model.Patient{
		Base: model.Base{
			ID:        strToUUID(d.ID),
			OwnerID:   strToUUID(d.OwnerID),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		Name:         d.Name,
		Age:          d.Age,
		Address:      d.Address,
		Grade:        d.Grade,
		PastHistory:  d.PastHistory,
		AvatarURL:    d.AvatarURL,
		GroupID:      ptrStrToUUID(d.Group),
		Appointments: strsToIDs(d.Appointments),
		VisitHistory: lo.Map(d.VisitHistory, func(v visitRowDoc, _ int) model.VisitRow {
			return model.VisitRow{
				AppointmentID: strToUUID(v.Appointment),
				Date:          v.Date,
				Kind:          model.AppointmentKind(v.Type),
				Note:          v.Note,
				AIInsights:    v.AIInsights,
				Activities:    strsToIDs(v.Activities),
			}
		}),
		Attendance: lo.Map(d.Attendance, func(a attendanceDoc, _ int) model.AttendanceRow {
			return model.AttendanceRow{
				AppointmentID: strToUUID(a.Appointment),
				Date:          a.Date,
				Status:        model.AttendanceStatus(a.Status),
				Progress:      a.Progress,
			}
		}),
		Materials: lo.Map(d.Materials, func(m materialDoc, _ int) model.Material {
			return model.Material{
				AppointmentID: strToUUID(m.Appointment),
				ActivityID:    strToUUID(m.Activity),
				VisitDate:     m.VisitDate,
				FileURL:       m.FileURL,
				Filename:      m.Filename,
			}
		}),
		Goals: d.Goals,
		GoalProgress: lo.Map(d.GoalProgress, func(g goalProgressDoc, _ int) model.GoalProgress {
			return model.GoalProgress{
				Name: g.Name,
				Associated: lo.Map(g.Associated, func(e goalEventDoc, _ int) model.GoalEvent {
					return model.GoalEvent{ActivityName: e.ActivityName, OnDate: e.OnDate}
				}),
				Progress:   g.Progress,
				Comment:    g.Comment,
				StartDate:  g.StartDate,
				TargetDate: g.TargetDate,
			}
		}),
	}
}

type patientRepository struct {
	coll *mongo.Collection
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	if _, err := r.coll.InsertOne(ctx, toPatientDoc(patient)); err != nil {
		return fmt.Errorf("failed to create patient: %w", translate(err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var doc patientDoc
	if err := r.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *patientRepository) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Patient, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"owner_id": uuidToStr(ownerID)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	var docs []patientDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	return lo.Map(docs, func(d patientDoc, _ int) *model.Patient { return d.toModel() }), nil
}

func (r *patientRepository) UpdateProfile(ctx context.Context, patient *model.Patient) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(patient.ID), bson.M{"$set": bson.M{
		"name":         patient.Name,
		"age":          patient.Age,
		"address":      patient.Address,
		"grade":        patient.Grade,
		"past_history": orEmpty(patient.PastHistory),
		"avatar_url":   patient.AvatarURL,
		"updated_at":   patient.UpdatedAt,
	}}))
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var doc patientDoc
	if err := r.coll.FindOneAndDelete(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to delete patient: %w", translate(err))
	}
	return doc.toModel(), nil
}

func (r *patientRepository) CountOwned(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"_id":      bson.M{"$in": idsToStrs(lo.Uniq(ids))},
		"owner_id": uuidToStr(ownerID),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}

func (r *patientRepository) ListIDsByGroup(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"group": uuidToStr(groupID)}, idsOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return decodeIDs(ctx, cursor)
}

func (r *patientRepository) ListIDsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	a := uuidToStr(appointmentID)
	cursor, err := r.coll.Find(ctx, bson.M{"$or": bson.A{
		bson.M{"appointments": a},
		bson.M{"visit_history.appointment": a},
		bson.M{"attendance.appointment": a},
	}}, idsOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment participants: %w", err)
	}
	return decodeIDs(ctx, cursor)
}

func (r *patientRepository) SetGroup(ctx context.Context, id uuid.UUID, groupID *uuid.UUID) error {
	update := bson.M{"$unset": bson.M{"group": ""}}
	if groupID != nil {
		update = bson.M{"$set": bson.M{"group": uuidToStr(*groupID)}}
	}
	if err := requireMatch(r.coll.UpdateOne(ctx, byID(id), update)); err != nil {
		return fmt.Errorf("failed to set patient group: %w", err)
	}
	return nil
}

func (r *patientRepository) ClearGroup(ctx context.Context, ids []uuid.UUID, groupID uuid.UUID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": idsToStrs(ids)}, "group": uuidToStr(groupID)},
		bson.M{"$unset": bson.M{"group": ""}})
	if err != nil {
		return 0, fmt.Errorf("failed to clear patient group: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *patientRepository) AddAppointments(ctx context.Context, id uuid.UUID, appointmentIDs []uuid.UUID) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$addToSet": bson.M{"appointments": bson.M{"$each": idsToStrs(appointmentIDs)}}}))
	if err != nil {
		return fmt.Errorf("failed to add appointments: %w", err)
	}
	return nil
}

func (r *patientRepository) PullAppointments(ctx context.Context, id uuid.UUID, appointmentIDs []uuid.UUID) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$pull": bson.M{"appointments": bson.M{"$in": idsToStrs(appointmentIDs)}}}))
	if err != nil {
		return fmt.Errorf("failed to pull appointments: %w", err)
	}
	return nil
}

func (r *patientRepository) LinkAppointment(ctx context.Context, ids []uuid.UUID, row model.AttendanceRow) error {
	a := uuidToStr(row.AppointmentID)
	members := bson.M{"$in": idsToStrs(ids)}
	if _, err := r.coll.UpdateMany(ctx, bson.M{"_id": members},
		bson.M{"$addToSet": bson.M{"appointments": a}}); err != nil {
		return fmt.Errorf("failed to link appointment: %w", err)
	}
	if _, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": members, "attendance.appointment": bson.M{"$ne": a}},
		bson.M{"$push": bson.M{"attendance": toAttendanceDoc(row)}}); err != nil {
		return fmt.Errorf("failed to add attendance row: %w", err)
	}
	return nil
}

func (r *patientRepository) UnlinkAppointment(ctx context.Context, ids []uuid.UUID, appointmentID uuid.UUID) error {
	a := uuidToStr(appointmentID)
	_, err := r.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": idsToStrs(ids)}}, bson.M{"$pull": bson.M{
		"appointments":  a,
		"visit_history": bson.M{"appointment": a},
		"attendance":    bson.M{"appointment": a},
	}})
	if err != nil {
		return fmt.Errorf("failed to unlink appointment: %w", err)
	}
	return nil
}

func (r *patientRepository) RemoveVisitRow(ctx context.Context, id, appointmentID uuid.UUID) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$pull": bson.M{"visit_history": bson.M{"appointment": uuidToStr(appointmentID)}}}))
	if err != nil {
		return fmt.Errorf("failed to remove visit row: %w", err)
	}
	return nil
}

func (r *patientRepository) InsertVisitRow(ctx context.Context, id uuid.UUID, row model.VisitRow) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": uuidToStr(id), "visit_history.appointment": bson.M{"$ne": uuidToStr(row.AppointmentID)}},
		bson.M{"$push": bson.M{"visit_history": toVisitRowDoc(row)}})
	if err != nil {
		return false, fmt.Errorf("failed to insert visit row: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	n, err := r.coll.CountDocuments(ctx, byID(id))
	if err != nil {
		return false, fmt.Errorf("failed to check patient: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("failed to insert visit row: %w", repository.ErrNotFound)
	}
	return false, nil
}

func (r *patientRepository) PullVisitActivity(ctx context.Context, id, appointmentID, activityID uuid.UUID) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": uuidToStr(id), "visit_history.appointment": uuidToStr(appointmentID)},
		bson.M{"$pull": bson.M{"visit_history.$.activities": uuidToStr(activityID)}})
	if err != nil {
		return fmt.Errorf("failed to pull visit activity: %w", err)
	}
	return nil
}

func (r *patientRepository) AddVisitActivity(ctx context.Context, id, appointmentID, activityID uuid.UUID) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": uuidToStr(id), "visit_history.appointment": uuidToStr(appointmentID)},
		bson.M{"$addToSet": bson.M{"visit_history.$.activities": uuidToStr(activityID)}})
	if err != nil {
		return fmt.Errorf("failed to add visit activity: %w", err)
	}
	return nil
}

func (r *patientRepository) PullActivity(ctx context.Context, ids []uuid.UUID, activityID uuid.UUID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": idsToStrs(ids)}, "visit_history.activities": uuidToStr(activityID)},
		bson.M{"$pull": bson.M{"visit_history.$[].activities": uuidToStr(activityID)}})
	if err != nil {
		return fmt.Errorf("failed to pull activity: %w", err)
	}
	return nil
}

func (r *patientRepository) RetimeAttendance(ctx context.Context, appointmentID uuid.UUID, date time.Time) (int64, error) {
	a := uuidToStr(appointmentID)
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"attendance.appointment": a},
		bson.M{"$set": bson.M{"attendance.$[row].date": date}},
		options.UpdateMany().SetArrayFilters([]any{bson.M{"row.appointment": a}}))
	if err != nil {
		return 0, fmt.Errorf("failed to retime attendance: %w", err)
	}
	return res.MatchedCount, nil
}

func (r *patientRepository) SetGoals(ctx context.Context, id uuid.UUID, goals []string) error {
	if err := requireMatch(r.coll.UpdateOne(ctx, byID(id), bson.M{"$set": bson.M{"goals": orEmpty(goals)}})); err != nil {
		return fmt.Errorf("failed to set goals: %w", err)
	}
	return nil
}

func (r *patientRepository) SetGoalProgress(ctx context.Context, id uuid.UUID, progress []model.GoalProgress) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$set": bson.M{"goal_progress": toGoalProgressDocs(progress)}}))
	if err != nil {
		return fmt.Errorf("failed to set goal progress: %w", err)
	}
	return nil
}

func (r *patientRepository) AppendGoalHistory(ctx context.Context, id uuid.UUID, goals []string, event model.GoalEvent) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$push": bson.M{"goal_progress.$[goal].associated": goalEventDoc{
			ActivityName: event.ActivityName,
			OnDate:       event.OnDate,
		}}},
		options.UpdateOne().SetArrayFilters([]any{bson.M{"goal.name": bson.M{"$in": goals}}})))
	if err != nil {
		return fmt.Errorf("failed to append goal history: %w", err)
	}
	return nil
}

func (r *patientRepository) RemoveMaterial(ctx context.Context, id, appointmentID, activityID uuid.UUID) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id), bson.M{"$pull": bson.M{"materials": bson.M{
		"appointment": uuidToStr(appointmentID),
		"activity":    uuidToStr(activityID),
	}}}))
	if err != nil {
		return fmt.Errorf("failed to remove material: %w", err)
	}
	return nil
}

func (r *patientRepository) PushMaterial(ctx context.Context, id uuid.UUID, material model.Material) error {
	err := requireMatch(r.coll.UpdateOne(ctx, byID(id),
		bson.M{"$push": bson.M{"materials": toMaterialDoc(material)}}))
	if err != nil {
		return fmt.Errorf("failed to push material: %w", err)
	}
	return nil
}
