package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/shipyard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// User statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")

	errBadRole    = errors.New(`role must be "admin"|"standard"`)
	errBadStatus  = errors.New(`status must be "active"|"disabled"`)
	errNoUsername = errors.New("username is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates the unique case-insensitive username index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username_ci", Value: 1}},
		Options: options.Index().SetName("uniq_users_username_ci").SetUnique(true),
	})
	return err
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUsername looks up a user by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username_ci": text.Fold(strings.TrimSpace(username))})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// A non-empty password is hashed with bcrypt.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = strings.TrimSpace(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	if u.Username == "" {
		return models.User{}, errNoUsername
	}
	if u.Status == "" {
		u.Status = StatusActive
	}

	switch u.Role {
	case models.RoleAdmin, models.RoleStandard:
	default:
		return models.User{}, errBadRole
	}
	switch u.Status {
	case StatusActive, StatusDisabled:
	default:
		return models.User{}, errBadStatus
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = string(hash)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, err
	}
	return u, nil
}

// GetOrCreateOAuthUser returns the user for an identity-provider subject,
// creating a standard user when autoCreate is set.
func (s *Store) GetOrCreateOAuthUser(ctx context.Context, username string, autoCreate bool) (*models.User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err == nil || !errors.Is(err, ErrNotFound) || !autoCreate {
		return u, err
	}

	created, err := s.Create(ctx, models.User{Username: username, Role: models.RoleStandard}, "")
	if errors.Is(err, ErrDuplicateUsername) {
		// Lost a race with a concurrent first login.
		return s.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// VerifyPassword checks password against the user's bcrypt hash.
func VerifyPassword(u *models.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
