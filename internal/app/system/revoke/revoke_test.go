package revoke

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/app/system/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeDestroyer struct {
	calls int
	err   error
}

func (f *fakeDestroyer) Destroy(http.ResponseWriter, *http.Request) error {
	f.calls++
	return f.err
}

type fakeRevoker struct {
	revoked []string
	err     error
}

func (f *fakeRevoker) Revoke(_ context.Context, raw string) error {
	f.revoked = append(f.revoked, raw)
	return f.err
}

type fakeKube struct{ removed []string }

func (f *fakeKube) RemoveUser(id string) { f.removed = append(f.removed, id) }

type fakeActivity struct {
	closed []primitive.ObjectID
	reason string
	err    error
}

func (f *fakeActivity) Close(_ context.Context, id primitive.ObjectID, reason string) error {
	f.closed = append(f.closed, id)
	f.reason = reason
	return f.err
}

type fixture struct {
	svc      *Service
	sess     *fakeDestroyer
	tok      *fakeRevoker
	kube     *fakeKube
	activity *fakeActivity
}

func newFixture() *fixture {
	f := &fixture{
		sess:     &fakeDestroyer{},
		tok:      &fakeRevoker{},
		kube:     &fakeKube{},
		activity: &fakeActivity{},
	}
	f.svc = &Service{Sessions: f.sess, Tokens: f.tok, Kube: f.kube, Activity: f.activity, Log: zap.NewNop()}
	return f
}

func signedInRequest(userID, activityID string, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/logout", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: userID, Name: "alice", Role: "standard", ActivitySessionID: activityID})
	if token != "" {
		claims := &tokens.Claims{Username: "alice", Role: "standard"}
		claims.Subject = userID
		r = r.WithContext(tokens.WithClaims(r.Context(), claims, token))
	}
	return r
}

func TestLogout_ClientOnly(t *testing.T) {
	f := newFixture()
	uid := primitive.NewObjectID()
	r := signedInRequest(uid.Hex(), primitive.NewObjectID().Hex(), "tok")

	err := f.svc.For(httptest.NewRecorder(), r).Logout(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, f.sess.calls)
	assert.Equal(t, []string{uid.Hex()}, f.kube.removed)
	assert.Empty(t, f.tok.revoked, "client-only logout must not revoke the token")
	assert.Empty(t, f.activity.closed)
}

func TestLogout_Server(t *testing.T) {
	f := newFixture()
	uid := primitive.NewObjectID()
	sid := primitive.NewObjectID()
	r := signedInRequest(uid.Hex(), sid.Hex(), "tok")

	err := f.svc.For(httptest.NewRecorder(), r).Logout(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, f.tok.revoked)
	assert.Equal(t, []primitive.ObjectID{sid}, f.activity.closed)
	assert.Equal(t, sessions.EndLogout, f.activity.reason)
}

func TestLogout_Anonymous(t *testing.T) {
	f := newFixture()
	r := httptest.NewRequest(http.MethodGet, "/logout", nil)

	err := f.svc.For(httptest.NewRecorder(), r).Logout(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, f.sess.calls, "cookie is cleared even without a caller")
	assert.Empty(t, f.kube.removed)
	assert.Empty(t, f.tok.revoked)
}

func TestLogout_Errors(t *testing.T) {
	uid := primitive.NewObjectID().Hex()
	sid := primitive.NewObjectID().Hex()

	t.Run("session cookie", func(t *testing.T) {
		f := newFixture()
		f.sess.err = errors.New("encode")
		err := f.svc.For(httptest.NewRecorder(), signedInRequest(uid, sid, "")).Logout(context.Background(), false)
		assert.ErrorIs(t, err, f.sess.err)
	})

	t.Run("token revoke", func(t *testing.T) {
		f := newFixture()
		f.tok.err = errors.New("redis down")
		err := f.svc.For(httptest.NewRecorder(), signedInRequest(uid, sid, "tok")).Logout(context.Background(), true)
		assert.ErrorIs(t, err, f.tok.err)
		assert.Empty(t, f.activity.closed)
	})

	t.Run("activity close", func(t *testing.T) {
		f := newFixture()
		f.activity.err = errors.New("mongo down")
		err := f.svc.For(httptest.NewRecorder(), signedInRequest(uid, sid, "")).Logout(context.Background(), true)
		assert.ErrorIs(t, err, f.activity.err)
	})

	t.Run("unknown activity session is ignored", func(t *testing.T) {
		f := newFixture()
		f.activity.err = mongo.ErrNoDocuments
		err := f.svc.For(httptest.NewRecorder(), signedInRequest(uid, sid, "")).Logout(context.Background(), true)
		assert.NoError(t, err)
	})
}

func TestLogout_MalformedActivityID(t *testing.T) {
	f := newFixture()
	r := signedInRequest(primitive.NewObjectID().Hex(), "not-an-id", "")

	err := f.svc.For(httptest.NewRecorder(), r).Logout(context.Background(), true)

	assert.NoError(t, err)
	assert.Empty(t, f.activity.closed)
}
