package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
)

type AvailabilityRepository struct {
	coll *mongo.Collection
}

func (r *AvailabilityRepository) Find(ctx context.Context) (availability.Availability, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc availabilityDoc
	err := r.coll.FindOne(ctx, bson.M{"key": availabilityKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return availability.Availability{}, false, nil
	}
	if err != nil {
		return availability.Availability{}, false, err
	}
	a, err := doc.toModel()
	if err != nil {
		return availability.Availability{}, false, err
	}
	return a, true, nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, a availability.Availability) (availability.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, availabilityToDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return availability.Availability{}, fmt.Errorf("availability already exists: %w", err)
		}
		return availability.Availability{}, err
	}
	return a, nil
}

func (r *AvailabilityRepository) Update(ctx context.Context, a availability.Availability) (availability.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": a.ID}, availabilityToDoc(a))
	if err != nil {
		return availability.Availability{}, err
	}
	if res.MatchedCount == 0 {
		return availability.Availability{}, fmt.Errorf("availability %s does not exist", a.ID)
	}
	return a, nil
}
