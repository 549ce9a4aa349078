package backupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds the status of the latest automated backup.
type Store struct {
	c *mongo.Collection
}

// New creates a new backup status store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("backup_status")}
}

// Get returns the latest backup status. Before any backup has run the
// zero status (not failed) is returned.
func (s *Store) Get(ctx context.Context) (models.BackupStatus, error) {
	var st models.BackupStatus
	err := s.c.FindOne(ctx, bson.M{"_id": models.BackupStatusID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BackupStatus{}, nil
	}
	return st, err
}

// Record stores the outcome of a backup run. A zero timestamp is set to now.
func (s *Store) Record(ctx context.Context, st models.BackupStatus) (models.BackupStatus, error) {
	if st.TimestampUTC.IsZero() {
		st.TimestampUTC = time.Now().UTC()
	}
	st.TimestampUTC = st.TimestampUTC.UTC()

	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": models.BackupStatusID},
		bson.M{"$set": bson.M{
			"failed":        st.Failed,
			"timestamp_utc": st.TimestampUTC,
			"message":       st.Message,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return models.BackupStatus{}, err
	}
	return st, nil
}
