package kroger

import (
	"context"
	"time"

	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/tokenstore"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	authorizePath = "/v1/connect/oauth2/authorize"
	tokenPath     = "/v1/connect/oauth2/token"
	profilePath   = "/v1/connect/oauth2/profile"
)

// expirySlack is how close to expiry a cached token is still trusted.
const expirySlack = 30 * time.Second

// Authenticator wraps the three OAuth2 grants the Kroger token endpoint
// supports. Kroger authenticates the client with HTTP basic auth on every
// grant, hence AuthStyleInHeader throughout.
type Authenticator struct {
	cfg *config.KrogerConfig
}

func NewAuthenticator(cfg *config.KrogerConfig) *Authenticator {
	return &Authenticator{cfg: cfg}
}

func (a *Authenticator) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   a.cfg.BaseURL + authorizePath,
		TokenURL:  a.cfg.BaseURL + tokenPath,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

func (a *Authenticator) oauthConfig(scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint:     a.endpoint(),
		RedirectURL:  a.cfg.RedirectURI,
		Scopes:       scopes,
	}
}

// ClientCredentials fetches an application token for a single scope.
func (a *Authenticator) ClientCredentials(ctx context.Context, scope string) (*oauth2.Token, error) {
	cfg := &clientcredentials.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		TokenURL:     a.cfg.BaseURL + tokenPath,
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return cfg.Token(ctx)
}

// AuthCodeURL builds the consent URL for the authorization-code flow.
// banner selects chain specific branding on the consent screen and may be
// empty.
func (a *Authenticator) AuthCodeURL(scopes []string, state, codeChallenge, codeChallengeMethod, banner string) string {
	opts := []oauth2.AuthCodeOption{}
	if codeChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", codeChallengeMethod),
		)
	}
	if banner != "" {
		opts = append(opts, oauth2.SetAuthURLParam("banner", banner))
	}
	return a.oauthConfig(scopes).AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a token. codeVerifier is the
// PKCE verifier matching the challenge sent with the consent URL.
func (a *Authenticator) Exchange(ctx context.Context, code, codeVerifier string) (*oauth2.Token, error) {
	opts := []oauth2.AuthCodeOption{}
	if codeVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	}
	return a.oauthConfig(nil).Exchange(ctx, code, opts...)
}

// Refresh obtains a new token from a refresh token.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return a.oauthConfig(nil).TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
	}).Token()
}

// RecordFromToken converts an exchanged token into the raw record shape the
// token store persists. expires_at is added so a later process can judge
// validity without another round trip.
func RecordFromToken(tok *oauth2.Token) tokenstore.Record {
	record := tokenstore.Record{
		"access_token": tok.AccessToken,
		"token_type":   tok.TokenType,
	}
	if tok.RefreshToken != "" {
		record["refresh_token"] = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		record["expires_at"] = tok.Expiry.UTC().Format(time.RFC3339)
		if in := time.Until(tok.Expiry); in > 0 {
			record["expires_in"] = int(in.Seconds())
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		record["scope"] = scope
	}
	return record
}

// TokenFromRecord rebuilds an oauth2 token from a stored record. Returns
// nil when the record holds no access token.
func TokenFromRecord(record tokenstore.Record) *oauth2.Token {
	if record == nil {
		return nil
	}
	access, _ := record["access_token"].(string)
	if access == "" {
		return nil
	}
	tok := &oauth2.Token{AccessToken: access}
	tok.TokenType, _ = record["token_type"].(string)
	tok.RefreshToken, _ = record["refresh_token"].(string)
	if at, ok := record["expires_at"].(string); ok {
		if expiry, err := time.Parse(time.RFC3339, at); err == nil {
			tok.Expiry = expiry
		}
	}
	return tok
}

// usable reports whether a cached token can still authorize requests. A
// token without a recorded expiry is assumed usable; the request path will
// refresh on 401 if it is not.
func usable(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return time.Until(tok.Expiry) > expirySlack
}
