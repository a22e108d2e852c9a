package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	activitiesCollection   = "activities"
	availabilityCollection = "availability"
	appointmentsCollection = "appointments"

	opTimeout = 5 * time.Second
)

// Store groups the collections of the document backend.
type Store struct {
	Activities   *ActivityRepository
	Availability *AvailabilityRepository
	Appointments *AppointmentRepository
	db           *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{
		Activities:   &ActivityRepository{coll: db.Collection(activitiesCollection)},
		Availability: &AvailabilityRepository{coll: db.Collection(availabilityCollection)},
		Appointments: &AppointmentRepository{coll: db.Collection(appointmentsCollection)},
		db:           db,
	}
}

// EnsureIndexes creates the indexes the repositories rely on. The partial unique
// index on active start times is the document-side overlap guard; it only catches
// identical starts.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	appointmentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dateTime", Value: 1}, {Key: "endDateTime", Value: 1}},
			Options: options.Index().SetName("date_range_idx"),
		},
		{
			Keys: bson.D{{Key: "dateTime", Value: 1}},
			Options: options.Index().
				SetName("active_start_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "reminderSent", Value: 1}, {Key: "dateTime", Value: 1}},
			Options: options.Index().SetName("reminder_sweep_idx"),
		},
	}
	if _, err := s.db.Collection(appointmentsCollection).Indexes().CreateMany(ctx, appointmentIndexes); err != nil {
		return fmt.Errorf("failed to create appointment indexes: %w", err)
	}

	singleton := mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetName("singleton_key").SetUnique(true),
	}
	if _, err := s.db.Collection(availabilityCollection).Indexes().CreateOne(ctx, singleton); err != nil {
		return fmt.Errorf("failed to create availability index: %w", err)
	}

	byName := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name_idx"),
	}
	if _, err := s.db.Collection(activitiesCollection).Indexes().CreateOne(ctx, byName); err != nil {
		return fmt.Errorf("failed to create activity index: %w", err)
	}
	return nil
}
