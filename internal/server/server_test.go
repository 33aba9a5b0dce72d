package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cartwheel-tools/kroger-mcp/internal/config"
	"github.com/cartwheel-tools/kroger-mcp/internal/kroger"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a Server against a fake Kroger API.
func newTestServer(t *testing.T, apiHandler http.Handler) *Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/connect/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","token_type":"bearer","expires_in":1800}`))
	})
	if apiHandler != nil {
		mux.Handle("/v1/", apiHandler)
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Name:    "Kroger MCP",
			Version: "1.0.0",
			Host:    "localhost",
			Port:    8080,
			Mode:    config.ServerModeSTDIO,
		},
		API: config.KrogerConfig{
			BaseURL:      ts.URL,
			ClientID:     "test-client",
			ClientSecret: "test-secret",
			ZipCode:      "45202",
			TokenDir:     t.TempDir(),
		},
	}

	return NewServer(cfg, kroger.NewClient(&cfg.API))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestSearchStoresTool(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/locations", r.URL.Path)
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))
		assert.Equal(t, "45202", r.URL.Query().Get("filter.zipCode.near"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{
			"locationId":"01400441",
			"chain":"KROGER",
			"name":"Kroger Downtown",
			"address":{"addressLine1":"100 Main St","city":"Cincinnati","state":"OH","zipCode":"45202"}
		}]}`))
	}))

	// zip_code omitted: the configured default applies.
	result, err := srv.handleSearchStores(context.Background(), callRequest("search_store_locations", map[string]any{
		"limit": float64(5),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload struct {
		ZipCode string `json:"zip_code"`
		Count   int    `json:"count"`
		Stores  []struct {
			LocationID string `json:"location_id"`
			Address    string `json:"address"`
		} `json:"stores"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, "45202", payload.ZipCode)
	assert.Equal(t, 1, payload.Count)
	require.Len(t, payload.Stores, 1)
	assert.Equal(t, "01400441", payload.Stores[0].LocationID)
	assert.Equal(t, "100 Main St, Cincinnati, OH 45202", payload.Stores[0].Address)
}

func TestStoreDetailsToolRequiresID(t *testing.T) {
	srv := newTestServer(t, nil)

	result, err := srv.handleStoreDetails(context.Background(), callRequest("get_store_details", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchProductsTool(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/products", r.URL.Path)
		assert.Equal(t, "milk", r.URL.Query().Get("filter.term"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"productId":"0001111041700","upc":"0001111041700","description":"Kroger 2% Milk"}]}`))
	}))

	result, err := srv.handleSearchProducts(context.Background(), callRequest("search_products", map[string]any{
		"term": "milk",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Kroger 2% Milk")
}

func TestUserToolsRequireLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	result, err := srv.handleAddToCart(context.Background(), callRequest("add_to_cart", map[string]any{
		"upc": "0001111041700",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "kroger-mcp login")

	result, err = srv.handleGetProfile(context.Background(), callRequest("get_profile", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestToolErrorSurfacesAPIFailure(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream unavailable`))
	}))

	result, err := srv.handleListChains(context.Background(), callRequest("list_chains", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "list_chains failed")
}

func TestAgentCardEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.createHTTPHandler(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var card struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		Skills []any  `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "Kroger MCP", card.Name)
	assert.NotEmpty(t, card.Skills)
}

func TestCORSPreflights(t *testing.T) {
	srv := newTestServer(t, nil)
	handler := srv.createHTTPHandler(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
