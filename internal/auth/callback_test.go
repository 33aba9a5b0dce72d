package auth

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestCallbackServer(t *testing.T) *CallbackServer {
	t.Helper()
	s := NewCallbackServer(0)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestCallbackDeliversCode(t *testing.T) {
	s := startTestCallbackServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/?code=auth-code&state=nonce", s.Addr()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result, err := s.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "auth-code", result.Code)
	assert.Equal(t, "nonce", result.State)
}

func TestCallbackRejectsMissingCode(t *testing.T) {
	s := startTestCallbackServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/?error=access_denied", s.Addr()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWaitTimesOut(t *testing.T) {
	s := startTestCallbackServer(t)

	_, err := s.Wait(context.Background(), 10*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitHonorsContext(t *testing.T) {
	s := startTestCallbackServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPortFromRedirectURI(t *testing.T) {
	port, err := PortFromRedirectURI("http://localhost:8000/callback")
	require.NoError(t, err)
	assert.Equal(t, 8000, port)

	_, err = PortFromRedirectURI("http://localhost/callback")
	assert.Error(t, err, "port must be explicit")

	_, err = PortFromRedirectURI("://bad")
	assert.Error(t, err)
}
