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

func authTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		tokens := map[string]interface{}{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
			"expires_at":    time.Now().Add(time.Hour),
		}
		switch r.URL.Path {
		case "/api/v1/auth/login", "/api/v1/auth/register":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "s3cret-pass" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   map[string]string{"message": "invalid email or password"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": tokens})
		case "/api/v1/auth/logout":
			assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLogin(t *testing.T) {
	srv := authTestServer(t)
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAutoRefresh(false))
	require.NoError(t, err)

	t.Run("StoresTokens", func(t *testing.T) {
		resp, err := client.Login(context.Background(), "dev@example.com", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, "access-token", resp.AccessToken)
		assert.True(t, client.HasValidToken())
	})

	t.Run("BadCredentials", func(t *testing.T) {
		_, err := client.Login(context.Background(), "dev@example.com", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, err := client.Login(context.Background(), "", "s3cret-pass")
		assert.Error(t, err)
		_, err = client.Login(context.Background(), "dev@example.com", "")
		assert.Error(t, err)
	})
}

func TestRegister(t *testing.T) {
	srv := authTestServer(t)
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := client.Register(context.Background(), "dev@example.com", "s3cret-pass", "Dev")
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", resp.RefreshToken)

	_, err = client.Register(context.Background(), "dev@example.com", "s3cret-pass", "")
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	srv := authTestServer(t)
	defer srv.Close()

	client, err := NewClient(WithBaseURL(srv.URL), WithAutoRefresh(false))
	require.NoError(t, err)

	err = client.Logout(context.Background())
	assert.Error(t, err, "logout without a session should fail")

	_, err = client.Login(context.Background(), "dev@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background()))
	assert.False(t, client.HasValidToken())
}
