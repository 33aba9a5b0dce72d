package kroger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testConfig(baseURL string, tokenDir string) *config.KrogerConfig {
	return &config.KrogerConfig{
		BaseURL:      baseURL,
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURI:  "http://localhost:8000/callback",
		TokenDir:     tokenDir,
	}
}

func writeToken(w http.ResponseWriter, accessToken string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  accessToken,
		"refresh_token": "refresh-" + accessToken,
		"token_type":    "bearer",
		"expires_in":    1800,
	})
}

func TestAuthenticateClientCredentials(t *testing.T) {
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "product.compact", r.PostForm.Get("scope"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "token endpoint expects basic auth")
		assert.Equal(t, "test-client", user)
		assert.Equal(t, "test-secret", pass)

		writeToken(w, "app-token")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	dir := t.TempDir()
	client := NewClient(testConfig(ts.URL, dir))

	require.NoError(t, client.AuthenticateClientCredentials(context.Background(), "product.compact"))
	require.NotNil(t, client.Token())
	assert.Equal(t, "app-token", client.Token().AccessToken)
	assert.Equal(t, int32(1), tokenCalls.Load())

	// A second client reuses the cache file instead of re-authenticating.
	again := NewClient(testConfig(ts.URL, dir))
	require.NoError(t, again.AuthenticateClientCredentials(context.Background(), "product.compact"))
	assert.Equal(t, "app-token", again.Token().AccessToken)
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestLocationSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "45202", q.Get("filter.zipCode.near"))
		assert.Equal(t, "10", q.Get("filter.radiusInMiles"))
		assert.Equal(t, "5", q.Get("filter.limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{
			"locationId":"01400441",
			"chain":"KROGER",
			"name":"Kroger Downtown",
			"phone":"5135551234",
			"address":{"addressLine1":"100 Main St","city":"Cincinnati","state":"OH","zipCode":"45202"}
		}]}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := NewClient(testConfig(ts.URL, t.TempDir()))
	client.SetToken(&oauth2.Token{AccessToken: "test-token"}, nil)

	resp, err := client.Location.Search(context.Background(), &LocationSearchOptions{
		ZipCode:       "45202",
		RadiusInMiles: 10,
		Limit:         5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Kroger Downtown", resp.Data[0].Name)
	assert.Equal(t, "Cincinnati", resp.Data[0].Address.City)
}

func TestDoRefreshesOn401(t *testing.T) {
	var locationCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		if locationCalls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"expired"}`))
			return
		}
		assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		writeToken(w, "fresh-token")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	store := tokenstore.New(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(tokenstore.Record{
		"access_token":  "stale-token",
		"refresh_token": "old-refresh",
	}))

	client := NewClient(testConfig(ts.URL, t.TempDir()))
	client.SetToken(&oauth2.Token{AccessToken: "stale-token", RefreshToken: "old-refresh"}, store)

	_, err := client.Location.Search(context.Background(), &LocationSearchOptions{ZipCode: "45202"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), locationCalls.Load())

	// The refreshed token was persisted through the store.
	record := store.Load()
	require.NotNil(t, record)
	assert.Equal(t, "fresh-token", record["access_token"])
}

func TestDoWithoutToken(t *testing.T) {
	client := NewClient(testConfig("http://example.invalid", t.TempDir()))
	_, err := client.Location.Search(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLocationExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/locations/known", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
	})
	mux.HandleFunc("/v1/locations/unknown", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := NewClient(testConfig(ts.URL, t.TempDir()))
	client.SetToken(&oauth2.Token{AccessToken: "test-token"}, nil)

	exists, err := client.Location.Exists(context.Background(), "known")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.Location.Exists(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCartAdd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/cart/add", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body struct {
			Items []CartItem `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Items, 1)
		assert.Equal(t, "0001111041700", body.Items[0].UPC)
		assert.Equal(t, 2, body.Items[0].Quantity)
		w.WriteHeader(http.StatusNoContent)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := NewClient(testConfig(ts.URL, t.TempDir()))
	client.SetToken(&oauth2.Token{AccessToken: "user-token"}, nil)

	err := client.Cart.Add(context.Background(), []CartItem{
		{UPC: "0001111041700", Quantity: 2, Modality: "PICKUP"},
	})
	require.NoError(t, err)

	err = client.Cart.Add(context.Background(), nil)
	assert.Error(t, err, "empty cart add is rejected locally")
}

func TestRecordTokenConversion(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	tok := &oauth2.Token{
		AccessToken:  "abc",
		TokenType:    "bearer",
		RefreshToken: "xyz",
		Expiry:       expiry,
	}

	record := RecordFromToken(tok)
	assert.Equal(t, "abc", record["access_token"])
	assert.Equal(t, "xyz", record["refresh_token"])
	assert.Equal(t, expiry.Format(time.RFC3339), record["expires_at"])

	back := TokenFromRecord(record)
	require.NotNil(t, back)
	assert.Equal(t, tok.AccessToken, back.AccessToken)
	assert.Equal(t, tok.RefreshToken, back.RefreshToken)
	assert.True(t, back.Expiry.Equal(expiry))
}

func TestTokenFromRecordAbsent(t *testing.T) {
	assert.Nil(t, TokenFromRecord(nil))
	assert.Nil(t, TokenFromRecord(tokenstore.Record{"refresh_token": "xyz"}))
}

func TestLoadUserTokenRefreshesExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		writeToken(w, "renewed-token")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	dir := t.TempDir()
	store := tokenstore.NewUser(dir)
	require.NoError(t, store.Save(tokenstore.Record{
		"access_token":  "expired-token",
		"refresh_token": "user-refresh",
		"expires_at":    time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	}))

	client := NewClient(testConfig(ts.URL, dir))
	require.NoError(t, client.LoadUserToken(context.Background()))
	assert.Equal(t, "renewed-token", client.Token().AccessToken)
}

func TestLoadUserTokenWithoutCache(t *testing.T) {
	client := NewClient(testConfig("http://example.invalid", t.TempDir()))
	err := client.LoadUserToken(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
