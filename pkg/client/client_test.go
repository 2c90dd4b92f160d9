package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig().BaseURL, client.config.BaseURL)

	client, err = NewClient(
		WithBaseURL("https://audit.example.com"),
		WithTimeout(time.Minute),
		WithUserAgent("TestAgent/1.0"),
		WithAccessToken("access"),
		WithRefreshToken("refresh"),
		WithHeader("X-Team", "platform"),
	)
	require.NoError(t, err)
	assert.Equal(t, "https://audit.example.com", client.config.BaseURL)
	assert.Equal(t, time.Minute, client.config.Timeout)
	assert.Equal(t, "TestAgent/1.0", client.config.UserAgent)
	assert.Equal(t, "access", client.accessToken)
	assert.Equal(t, "refresh", client.refreshToken)
	assert.Equal(t, "platform", client.config.Headers["X-Team"])

	httpClient := &http.Client{Timeout: time.Second * 120}
	client, err = NewClient(WithHTTPClient(httpClient))
	require.NoError(t, err)
	assert.Equal(t, httpClient, client.httpClient)

	for _, opt := range []ClientOption{
		WithBaseURL(""),
		WithTimeout(0),
		WithUserAgent(""),
		WithHTTPClient(nil),
		WithRetryOptions(-1, 0),
		WithHeader("", "value"),
	} {
		_, err := NewClient(opt)
		assert.Error(t, err)
	}
}

func TestBuildURL(t *testing.T) {
	client, err := NewClient(WithBaseURL("https://audit.example.com/"))
	require.NoError(t, err)

	assert.Equal(t, "https://audit.example.com/api/v1/health", client.buildURL(APIPathHealth))
	assert.Equal(t, "https://audit.example.com/api/v1/scans", client.buildURL(APIPathScans))
	assert.Equal(t, "https://audit.example.com/api/v1/projects", client.buildURL("projects"))
}

func TestHandleResponse(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)

	t.Run("EnvelopeData", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusOK)
		rec.Body.WriteString(`{"success":true,"data":{"id":"scan-uuid","status":"PENDING"},"meta":{"total":1}}`)

		var out map[string]string
		meta, err := client.handleResponse(rec.Result(), &out)
		require.NoError(t, err)
		assert.Equal(t, "scan-uuid", out["id"])
		require.NotNil(t, meta)
		assert.Equal(t, 1, meta.Total)
	})

	t.Run("UnwrappedBody", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusOK)
		rec.Body.WriteString(`{"status":"ok"}`)

		var out map[string]string
		_, err := client.handleResponse(rec.Result(), &out)
		require.NoError(t, err)
		assert.Equal(t, "ok", out["status"])
	})

	t.Run("EnvelopeError", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusNotFound)
		rec.Body.WriteString(`{"success":false,"error":{"code":"NOT_FOUND","message":"scan not found"}}`)

		_, err := client.handleResponse(rec.Result(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "scan not found")
	})

	t.Run("OpaqueError", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rec.WriteHeader(http.StatusInternalServerError)
		rec.Body.WriteString(`oops`)

		_, err := client.handleResponse(rec.Result(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrServerError)
	})
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithRetryOptions(3, time.Millisecond))
	require.NoError(t, err)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, 3, calls)
}

func TestDoRefreshesExpiredToken(t *testing.T) {
	var refreshed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshed = true
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"access_token":  "fresh-access",
					"refresh_token": "fresh-refresh",
					"expires_at":    time.Now().Add(time.Hour),
				},
			})
		case "/api/v1/user/me":
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   map[string]string{"message": "token expired"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"id": 1, "email": "dev@example.com"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewClient(
		WithBaseURL(srv.URL),
		WithAccessToken("stale-access"),
		WithRefreshToken("stale-refresh"),
	)
	require.NoError(t, err)

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "dev@example.com", user.Email)

	access, refresh, _ := client.GetToken()
	assert.Equal(t, "fresh-access", access)
	assert.Equal(t, "fresh-refresh", refresh)
}
