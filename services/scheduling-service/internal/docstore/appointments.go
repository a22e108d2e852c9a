package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
)

type AppointmentRepository struct {
	coll *mongo.Collection
}

func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (model.Appointment, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc appointmentDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	appt, err := doc.toModel()
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (r *AppointmentRepository) FindAll(ctx context.Context) ([]model.Appointment, error) {
	return r.find(ctx, bson.M{})
}

func (r *AppointmentRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
	return r.find(ctx, rangeFilter(start, end, false))
}

func (r *AppointmentRepository) HasOverlappingAppointment(ctx context.Context, start time.Time, durationMinutes int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	n, err := r.coll.CountDocuments(ctx, rangeFilter(start, end, true), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Save inserts a new appointment. The partial unique index rejects a second active
// appointment at the same start, reported as model.ErrSlotTaken.
func (r *AppointmentRepository) Save(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, appointmentToDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Appointment{}, fmt.Errorf("%w: %v", model.ErrSlotTaken, err)
		}
		return model.Appointment{}, err
	}
	return a, nil
}

// Update replaces the document by id, keeping whatever version is stored.
func (r *AppointmentRepository) Update(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := appointmentToDoc(a)
	set := bson.M{
		"clientInfo":   doc.ClientInfo,
		"dateTime":     doc.DateTime,
		"endDateTime":  doc.EndDateTime,
		"status":       doc.Status,
		"active":       doc.Active,
		"reminderSent": doc.ReminderSent,
		"updatedAt":    doc.UpdatedAt,
	}
	var updated appointmentDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": a.ID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Appointment{}, fmt.Errorf("appointment %s does not exist", a.ID)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Appointment{}, fmt.Errorf("%w: %v", model.ErrSlotTaken, err)
		}
		return model.Appointment{}, err
	}
	return updated.toModel()
}

// UpdateWithOptimisticLock matches on id and the loaded version, bumping the
// version with $inc. No match is a version conflict.
func (r *AppointmentRepository) UpdateWithOptimisticLock(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter, update := lockedUpdate(a)
	var updated appointmentDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Appointment{}, model.ErrVersionConflict
	}
	if err != nil {
		return model.Appointment{}, err
	}
	return updated.toModel()
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *AppointmentRepository) find(ctx context.Context, filter bson.M) ([]model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "dateTime", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []appointmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0, len(docs))
	for _, d := range docs {
		appt, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, nil
}

// rangeFilter matches appointments whose [dateTime, endDateTime) intersects [start, end).
func rangeFilter(start, end time.Time, activeOnly bool) bson.M {
	filter := bson.M{
		"dateTime":    bson.M{"$lt": end.UTC()},
		"endDateTime": bson.M{"$gt": start.UTC()},
	}
	if activeOnly {
		filter["active"] = true
	}
	return filter
}

func lockedUpdate(a model.Appointment) (bson.M, bson.M) {
	filter := bson.M{"_id": a.ID, "version": a.Version}
	update := bson.M{
		"$set": bson.M{
			"status":       string(a.Status),
			"active":       a.Status.Active(),
			"reminderSent": a.ReminderSent,
			"updatedAt":    a.UpdatedAt.UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	return filter, update
}
