package viewdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/shipyard/internal/app/system/auth"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubSettings struct {
	pub models.PublicSettings
	err error
}

func (s stubSettings) PublicSettings(context.Context) (models.PublicSettings, error) {
	return s.pub, s.err
}

func TestNewBaseVM_Visitor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/login", nil)

	vm := NewBaseVM(r, nil, "Sign in", "/")

	if vm.IsLoggedIn {
		t.Error("visitor should not be logged in")
	}
	if vm.Role != "visitor" {
		t.Errorf("Role: got %q, want visitor", vm.Role)
	}
	if vm.SiteName != SiteName || vm.Title != "Sign in" {
		t.Errorf("unexpected vm: %+v", vm)
	}
}

func TestNewBaseVM_SignedInWithLogo(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r = auth.WithTestUser(r, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Name: "Ada", Role: "admin"})

	vm := NewBaseVM(r, stubSettings{pub: models.PublicSettings{LogoURL: "https://cdn/logo.png"}}, "Home", "/")

	if !vm.IsLoggedIn || vm.UserName != "Ada" || vm.Role != "admin" {
		t.Errorf("user context not populated: %+v", vm)
	}
	if vm.LogoURL != "https://cdn/logo.png" {
		t.Errorf("LogoURL: got %q", vm.LogoURL)
	}
}

func TestNewBaseVM_SettingsErrorLeavesLogoEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	vm := NewBaseVM(r, stubSettings{err: errors.New("down")}, "Home", "/")
	if vm.LogoURL != "" {
		t.Errorf("LogoURL: got %q, want empty", vm.LogoURL)
	}
}
