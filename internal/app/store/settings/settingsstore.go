package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the settings collection.
// The console has a single settings document with _id "default".
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("settings")}
}

// Get returns the console settings, or the defaults if none were saved.
func (s *Store) Get(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.c.FindOne(ctx, bson.M{"_id": models.SettingsID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

// PublicSettings returns the unauthenticated projection of the settings.
func (s *Store) PublicSettings(ctx context.Context) (models.PublicSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return models.PublicSettings{}, err
	}
	return settings.Public(), nil
}

// Save replaces the settings document.
// An empty client secret keeps the stored one, so a form round-trip of
// hidden secrets does not erase them.
func (s *Store) Save(ctx context.Context, settings models.Settings) error {
	now := time.Now().UTC()
	settings.ID = models.SettingsID
	settings.UpdatedAt = &now

	if settings.OAuthSettings.ClientSecret == "" {
		current, err := s.Get(ctx)
		if err != nil {
			return err
		}
		settings.OAuthSettings.ClientSecret = current.OAuthSettings.ClientSecret
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": models.SettingsID}, settings, opts)
	return err
}

// Exists checks if settings have been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"_id": models.SettingsID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
