// Package oauthclient signs users in against the external identity provider
// configured in the console settings.
package oauthclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/dalemusser/shipyard/internal/domain/models"
	"golang.org/x/oauth2"
)

// maxResourceBody caps the user resource response.
const maxResourceBody = 1 << 20

var (
	// ErrNotConfigured means the settings lack an endpoint or client id.
	ErrNotConfigured = errors.New("oauth is not configured")
	// ErrMissingCode means the callback carried no authorization code.
	ErrMissingCode = errors.New("invalid OAuth authorization code")
	// ErrNoIdentifier means the resource response did not name the user.
	ErrNoIdentifier = errors.New("user identifier not found in resource response")
)

// Identity is what the provider says about the signed-in user.
type Identity struct {
	Username string
	Teams    []string
	Token    *oauth2.Token
}

// Config builds the oauth2 config for settings.
func Config(s models.OAuthSettings) (*oauth2.Config, error) {
	if s.ClientID == "" || s.AuthorizationURI == "" || s.AccessTokenURI == "" {
		return nil, ErrNotConfigured
	}
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  s.RedirectURI,
		Scopes:       s.ScopeList(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.AuthorizationURI,
			TokenURL: s.AccessTokenURI,
		},
	}, nil
}

// AuthCodeURL returns the provider's login URL carrying state.
func AuthCodeURL(s models.OAuthSettings, state string) (string, error) {
	cfg, err := Config(s)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// Authenticate exchanges code for an access token, then asks the resource
// endpoint who the user is.
func Authenticate(ctx context.Context, s models.OAuthSettings, code string) (Identity, error) {
	if code == "" {
		return Identity{}, ErrMissingCode
	}
	cfg, err := Config(s)
	if err != nil {
		return Identity{}, err
	}

	unescaped, err := url.QueryUnescape(code)
	if err != nil {
		return Identity{}, fmt.Errorf("unescape code: %w", err)
	}
	tok, err := cfg.Exchange(ctx, unescaped)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	id, err := fetchIdentity(ctx, cfg.Client(ctx, tok), s)
	if err != nil {
		return Identity{}, err
	}
	id.Token = tok
	return id, nil
}

// resourceData is the CAS-style JSON profile.
type resourceData struct {
	ID         string `json:"id"`
	Attributes struct {
		Groups []string `json:"groups"`
	} `json:"attributes"`
}

func fetchIdentity(ctx context.Context, client *http.Client, s models.OAuthSettings) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ResourceURI, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build resource request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch resource: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBody))
	if err != nil {
		return Identity{}, fmt.Errorf("read resource: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, &oauth2.RetrieveError{Response: resp, Body: body}
	}

	content, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if content == "application/x-www-form-urlencoded" || content == "text/plain" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return Identity{}, fmt.Errorf("parse resource: %w", err)
		}
		username := values.Get(s.UserIdentifier)
		if username == "" {
			return Identity{}, ErrNoIdentifier
		}
		return Identity{Username: username}, nil
	}

	var data resourceData
	if err := json.Unmarshal(body, &data); err != nil {
		return Identity{}, fmt.Errorf("decode resource: %w", err)
	}
	if data.ID != "" {
		return Identity{Username: data.ID, Teams: data.Attributes.Groups}, nil
	}

	// Flat JSON profile keyed by the configured identifier.
	var flat map[string]any
	if err := json.Unmarshal(body, &flat); err == nil {
		if v, ok := flat[s.UserIdentifier].(string); ok && v != "" {
			return Identity{Username: v}, nil
		}
	}
	return Identity{}, ErrNoIdentifier
}
