// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Session creation sources
const (
	CreatedByLogin     = "login"     // local username/password
	CreatedByOAuth     = "oauth"     // external identity provider
	CreatedByHeartbeat = "heartbeat" // reopened after an inactivity close
)

// End reasons
const (
	EndLogout   = "logout"
	EndInactive = "inactive"
	EndReplaced = "replaced"
)

// Session tracks a console login for activity monitoring.
type Session struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	UserID primitive.ObjectID `bson:"user_id"`

	// Timing
	LoginAt      time.Time  `bson:"login_at"`
	LogoutAt     *time.Time `bson:"logout_at,omitempty"`
	LastActiveAt time.Time  `bson:"last_active_at"`

	CreatedBy string `bson:"created_by,omitempty"`
	EndReason string `bson:"end_reason,omitempty"` // "logout", "inactive", "replaced", ""

	// Context
	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Computed on session close
	DurationSecs int64 `bson:"duration_secs,omitempty"`
}

// Open reports whether the session has not been closed.
func (s Session) Open() bool { return s.LogoutAt == nil }

// Store manages user activity sessions.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("sessions"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Inactive sweep
		{
			Keys:    bson.D{{Key: "logout_at", Value: 1}, {Key: "last_active_at", Value: -1}},
			Options: options.Index().SetName("idx_sessions_active"),
		},
		// User session history
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "login_at", Value: -1}},
			Options: options.Index().SetName("idx_sessions_user"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create starts a new session for a user.
// Any sessions the user still has open are closed as "replaced".
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, ip, userAgent, createdBy string) (Session, error) {
	now := s.now()

	open, err := s.GetActiveByUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	for _, prev := range open {
		if err := s.close(ctx, prev, EndReplaced, now); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return Session{}, err
		}
	}

	sess := Session{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		LoginAt:      now,
		LastActiveAt: now,
		CreatedBy:    createdBy,
		IP:           ip,
		UserAgent:    userAgent,
	}

	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Close ends a session with the given reason and records its duration.
// Closing an already closed session is a no-op.
func (s *Store) Close(ctx context.Context, sessionID primitive.ObjectID, reason string) error {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Open() {
		return nil
	}
	return s.close(ctx, sess, reason, s.now())
}

func (s *Store) close(ctx context.Context, sess Session, reason string, now time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": sess.ID, "logout_at": nil},
		bson.M{"$set": bson.M{
			"logout_at":     now,
			"end_reason":    reason,
			"duration_secs": int64(now.Sub(sess.LoginAt).Seconds()),
		}},
	)
	return err
}

// Touch updates the last active timestamp of an open session.
// Returns false when the session is closed or unknown.
func (s *Store) Touch(ctx context.Context, sessionID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": sessionID, "logout_at": nil},
		bson.M{"$set": bson.M{"last_active_at": s.now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// GetByID retrieves a session by its ID.
func (s *Store) GetByID(ctx context.Context, sessionID primitive.ObjectID) (Session, error) {
	var sess Session
	err := s.c.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	return sess, err
}

// GetActiveByUser returns open sessions for a user.
func (s *Store) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]Session, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"user_id":   userID,
		"logout_at": nil,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetByUser retrieves session history for a user, newest first.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "login_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseInactiveSessions closes open sessions whose last activity is older
// than inactiveThreshold. The logout time is set to the last activity.
func (s *Store) CloseInactiveSessions(ctx context.Context, inactiveThreshold time.Duration) (int64, error) {
	cutoff := s.now().Add(-inactiveThreshold)

	// Pipeline update so logout_at and duration derive from each document.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"logout_at":  "$last_active_at",
			"end_reason": EndInactive,
			"duration_secs": bson.M{"$toLong": bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{"$last_active_at", "$login_at"}}, 1000,
			}}},
		}}},
	}

	result, err := s.c.UpdateMany(ctx,
		bson.M{
			"logout_at":      nil,
			"last_active_at": bson.M{"$lt": cutoff},
		},
		pipeline,
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
