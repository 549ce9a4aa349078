package settings_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/shipyard/internal/app/features/settings"
	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memStore struct {
	s       models.Settings
	saved   int
	loadErr error
}

func (m *memStore) Get(context.Context) (models.Settings, error) { return m.s, m.loadErr }

func (m *memStore) Save(_ context.Context, s models.Settings) error {
	if s.OAuthSettings.ClientSecret == "" {
		s.OAuthSettings.ClientSecret = m.s.OAuthSettings.ClientSecret
	}
	m.s = s
	m.saved++
	return nil
}

func oauthSettings() models.Settings {
	s := models.DefaultSettings()
	s.AuthenticationMethod = models.AuthenticationOAuth
	s.OAuthSettings = models.OAuthSettings{
		ClientID:         "shipyard",
		ClientSecret:     "top-secret",
		AuthorizationURI: "https://idp.example.com/authorize",
		AccessTokenURI:   "https://idp.example.com/token",
		ResourceURI:      "https://idp.example.com/me",
		RedirectURI:      "https://console.example.com/auth/oauth/callback",
		LogoutURI:        "https://idp.example.com/logout",
		UserIdentifier:   "username",
	}
	return s
}

func newRouter(store *memStore) http.Handler {
	return settings.Routes(settings.NewHandler(store, nil, zap.NewNop()))
}

func asUser(req *http.Request, role string) *http.Request {
	return auth.WithTestUser(req, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Name: "Test " + role, Role: role})
}

func TestServePublic_NoAuthRequired(t *testing.T) {
	store := &memStore{s: oauthSettings()}
	rec := httptest.NewRecorder()

	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var pub models.PublicSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pub.OAuthLogoutURI != "https://idp.example.com/logout" {
		t.Errorf("OAuthLogoutURI: got %q", pub.OAuthLogoutURI)
	}
	if !strings.HasPrefix(pub.OAuthLoginURI, "https://idp.example.com/authorize?") {
		t.Errorf("OAuthLoginURI: got %q", pub.OAuthLoginURI)
	}
	if strings.Contains(rec.Body.String(), "top-secret") {
		t.Error("public settings leaked the client secret")
	}
}

func TestServePublic_StoreError(t *testing.T) {
	store := &memStore{loadErr: errors.New("mongo down")}
	rec := httptest.NewRecorder()

	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestServeGet_Access(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"standard", models.RoleStandard, http.StatusForbidden},
		{"admin", models.RoleAdmin, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{s: oauthSettings()}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.role != "" {
				req = asUser(req, tc.role)
			}
			rec := httptest.NewRecorder()

			newRouter(store).ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, rec.Code)
			}
			if strings.Contains(rec.Body.String(), "top-secret") {
				t.Error("client secret must be hidden")
			}
		})
	}
}

func TestServeUpdate_Valid(t *testing.T) {
	store := &memStore{s: oauthSettings()}
	next := oauthSettings()
	next.OAuthSettings.ClientSecret = ""
	next.OAuthSettings.LogoutURI = "https://idp.example.com/v2/logout"
	body, _ := json.Marshal(next)

	req := asUser(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(string(body))), models.RoleAdmin)
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if store.s.OAuthSettings.LogoutURI != "https://idp.example.com/v2/logout" {
		t.Errorf("logout URI not saved: %q", store.s.OAuthSettings.LogoutURI)
	}
	if store.s.OAuthSettings.ClientSecret != "top-secret" {
		t.Error("blank secret should keep the stored one")
	}
	if store.s.UpdatedByName != "Test admin" {
		t.Errorf("UpdatedByName: got %q", store.s.UpdatedByName)
	}
}

func TestServeUpdate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Settings)
	}{
		{"unknown method", func(s *models.Settings) { s.AuthenticationMethod = 9 }},
		{"missing client id", func(s *models.Settings) { s.OAuthSettings.ClientID = "" }},
		{"relative logout uri", func(s *models.Settings) { s.OAuthSettings.LogoutURI = "/logout" }},
		{"bad logo", func(s *models.Settings) { s.LogoURL = "ftp://x/logo.png" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{s: oauthSettings()}
			s := oauthSettings()
			tc.mutate(&s)
			body, _ := json.Marshal(s)

			req := asUser(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(string(body))), models.RoleAdmin)
			rec := httptest.NewRecorder()
			newRouter(store).ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if store.saved != 0 {
				t.Error("invalid settings must not be saved")
			}
		})
	}
}
