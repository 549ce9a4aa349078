// internal/domain/models/settings.go
package models

import (
	"net/url"
	"strings"
	"time"
)

// AuthenticationMethod selects how users sign in to the console.
type AuthenticationMethod int

const (
	_ AuthenticationMethod = iota
	// AuthenticationInternal uses console-managed usernames and passwords.
	AuthenticationInternal
	// AuthenticationLDAP is accepted in settings but handled outside the console.
	AuthenticationLDAP
	// AuthenticationOAuth delegates sign-in to an external OAuth provider.
	AuthenticationOAuth
)

// SettingsID is the _id of the single settings document.
const SettingsID = "default"

// OAuthSettings describes the external identity provider.
type OAuthSettings struct {
	ClientID             string `bson:"client_id" json:"ClientID"`
	ClientSecret         string `bson:"client_secret,omitempty" json:"ClientSecret,omitempty"`
	AccessTokenURI       string `bson:"access_token_uri" json:"AccessTokenURI"`
	AuthorizationURI     string `bson:"authorization_uri" json:"AuthorizationURI"`
	ResourceURI          string `bson:"resource_uri" json:"ResourceURI"`
	RedirectURI          string `bson:"redirect_uri" json:"RedirectURI"`
	LogoutURI            string `bson:"logout_uri" json:"LogoutURI"`
	UserIdentifier       string `bson:"user_identifier" json:"UserIdentifier"`
	Scopes               string `bson:"scopes" json:"Scopes"`
	OAuthAutoCreateUsers bool   `bson:"oauth_auto_create_users" json:"OAuthAutoCreateUsers"`
}

// ScopeList splits the space- or comma-separated scopes.
func (o OAuthSettings) ScopeList() []string {
	return strings.FieldsFunc(o.Scopes, func(r rune) bool {
		return r == ' ' || r == ','
	})
}

// Settings is the admin-editable console configuration.
type Settings struct {
	ID                   string               `bson:"_id" json:"-"`
	LogoURL              string               `bson:"logo_url,omitempty" json:"LogoURL"`
	AuthenticationMethod AuthenticationMethod `bson:"authentication_method" json:"AuthenticationMethod"`
	OAuthSettings        OAuthSettings        `bson:"oauth_settings" json:"OAuthSettings"`

	UpdatedAt     *time.Time `bson:"updated_at,omitempty" json:"UpdatedAt,omitempty"`
	UpdatedByName string     `bson:"updated_by_name,omitempty" json:"UpdatedByName,omitempty"`
}

// DefaultSettings returns the settings used before an admin saves any.
func DefaultSettings() Settings {
	return Settings{
		ID:                   SettingsID,
		AuthenticationMethod: AuthenticationInternal,
	}
}

// PublicSettings is the unauthenticated projection of Settings.
type PublicSettings struct {
	LogoURL              string               `json:"LogoURL"`
	AuthenticationMethod AuthenticationMethod `json:"AuthenticationMethod"`
	OAuthLoginURI        string               `json:"OAuthLoginURI"`
	OAuthLogoutURI       string               `json:"OAuthLogoutURI"`
}

// Public builds the public projection. OAuthLoginURI is only populated when
// OAuth is the active method and an authorization endpoint is configured.
func (s Settings) Public() PublicSettings {
	pub := PublicSettings{
		LogoURL:              s.LogoURL,
		AuthenticationMethod: s.AuthenticationMethod,
		OAuthLogoutURI:       s.OAuthSettings.LogoutURI,
	}
	if s.AuthenticationMethod == AuthenticationOAuth && s.OAuthSettings.AuthorizationURI != "" {
		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", s.OAuthSettings.ClientID)
		q.Set("redirect_uri", s.OAuthSettings.RedirectURI)
		q.Set("scope", s.OAuthSettings.Scopes)
		pub.OAuthLoginURI = s.OAuthSettings.AuthorizationURI + "?" + q.Encode()
	}
	return pub
}

// HideSecrets blanks credentials before settings leave the server.
func (s *Settings) HideSecrets() {
	s.OAuthSettings.ClientSecret = ""
}
