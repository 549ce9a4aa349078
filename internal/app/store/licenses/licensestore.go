package licensestore

import (
	"context"
	"errors"

	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const licenseID = "current"

// Store holds the aggregated license of the console.
type Store struct {
	c *mongo.Collection
}

// New creates a new license store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("licenses")}
}

// Get returns the license, or nil when none is installed.
func (s *Store) Get(ctx context.Context) (*models.LicenseInfo, error) {
	var info models.LicenseInfo
	err := s.c.FindOne(ctx, bson.M{"_id": licenseID}).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Save installs or replaces the license.
func (s *Store) Save(ctx context.Context, info models.LicenseInfo) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": licenseID},
		bson.M{"$set": info},
		options.Update().SetUpsert(true),
	)
	return err
}
