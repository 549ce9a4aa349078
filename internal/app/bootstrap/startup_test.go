package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	userstore "github.com/dalemusser/shipyard/internal/app/store/users"
	"github.com/dalemusser/shipyard/internal/app/system/blocklist"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/shipyard/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "shipyard_test",
		JWTSecret:         "0123456789abcdef0123456789abcdef",
		CSRFKey:           "0123456789abcdef0123456789abcdef",
		BlocklistBackend:  blocklist.BackendMemory,
		AuditLogAuth:      "all",
		AuditLogAdmin:     "off",
		LogoutTimeout:     10 * time.Second,
		AuthRatePerMinute: 30,
		BaseURL:           "https://console.example.com",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "postgres://nope" }, "MongoDB URI"},
		{"unknown backend", func(c *AppConfig) { c.BlocklistBackend = "memcached" }, "unknown blocklist backend"},
		{"redis without url", func(c *AppConfig) { c.BlocklistBackend = blocklist.BackendRedis }, "redis_url"},
		{"redis with url", func(c *AppConfig) {
			c.BlocklistBackend = blocklist.BackendRedis
			c.RedisURL = "redis://localhost:6379/0"
		}, ""},
		{"short jwt secret", func(c *AppConfig) { c.JWTSecret = "short" }, "jwt_secret"},
		{"bad csrf key", func(c *AppConfig) { c.CSRFKey = "short" }, "csrf_key"},
		{"bad audit dest", func(c *AppConfig) { c.AuditLogAuth = "syslog" }, "audit_log_auth"},
		{"zero logout timeout", func(c *AppConfig) { c.LogoutTimeout = 0 }, "logout_timeout"},
		{"admin without password", func(c *AppConfig) { c.AdminUsername = "admin" }, "admin_password"},
		{"relative base url", func(c *AppConfig) { c.BaseURL = "/console" }, "base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(&config.CoreConfig{}, cfg, testLogger())

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestOpenBlocklist(t *testing.T) {
	cfg := validConfig()

	bl, err := openBlocklist(cfg, DBDeps{})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := bl.(*blocklist.Memory); !ok {
		t.Errorf("memory backend: got %T", bl)
	}

	cfg.BlocklistBackend = blocklist.BackendRedis
	if _, err := openBlocklist(cfg, DBDeps{}); err == nil {
		t.Error("redis backend without a client should fail")
	}

	cfg.BlocklistBackend = "etcd"
	var unknown blocklist.ErrUnknownBackend
	if _, err := openBlocklist(cfg, DBDeps{}); !errors.As(err, &unknown) {
		t.Errorf("unknown backend: got %v", err)
	}
}

type fakeAdminStore struct {
	count   int64
	created []models.User
}

func (f *fakeAdminStore) Count(context.Context) (int64, error) { return f.count, nil }

func (f *fakeAdminStore) Create(_ context.Context, u models.User, _ string) (models.User, error) {
	f.created = append(f.created, u)
	return u, nil
}

func TestEnsureInitialAdmin_SkipsWhenUsersExist(t *testing.T) {
	store := &fakeAdminStore{count: 3}

	if err := ensureInitialAdmin(context.Background(), store, "admin", "pw", testLogger()); err != nil {
		t.Fatalf("ensureInitialAdmin failed: %v", err)
	}
	if len(store.created) != 0 {
		t.Errorf("expected no user to be created, got %d", len(store.created))
	}
}

func TestEnsureInitialAdmin_DisabledWithoutUsername(t *testing.T) {
	store := &fakeAdminStore{}

	if err := ensureInitialAdmin(context.Background(), store, "", "", testLogger()); err != nil {
		t.Fatalf("ensureInitialAdmin failed: %v", err)
	}
	if len(store.created) != 0 {
		t.Error("expected no user to be created")
	}
}

func TestEnsureInitialAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	if err := ensureInitialAdmin(ctx, users, "root", "correct-horse", testLogger()); err != nil {
		t.Fatalf("ensureInitialAdmin failed: %v", err)
	}

	u, err := users.GetByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("expected role %q, got %q", models.RoleAdmin, u.Role)
	}
	if !userstore.VerifyPassword(u, "correct-horse") {
		t.Error("expected the configured password to verify")
	}

	// Running again is a no-op.
	if err := ensureInitialAdmin(ctx, users, "other", "pw", testLogger()); err != nil {
		t.Fatalf("second ensureInitialAdmin failed: %v", err)
	}
	if _, err := users.GetByUsername(ctx, "other"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected no second admin, got err=%v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureSchema(ctx, &config.CoreConfig{}, validConfig(), DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Idempotent.
	if err := EnsureSchema(ctx, &config.CoreConfig{}, validConfig(), DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
}
