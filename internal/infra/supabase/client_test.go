package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-portal/internal/auth"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoTrue struct {
	t       *testing.T
	signUps []string
}

func (f *fakeGoTrue) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(f.t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["email"] {
		case "ok@example.com":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"user":          map[string]any{"id": "u1", "email": "ok@example.com", "email_confirmed_at": "2024-01-01T00:00:00Z"},
			})
		case "pending@example.com":
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "error_code": "email_not_confirmed", "msg": "Email not confirmed"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
		}
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.signUps = append(f.signUps, r.URL.Query().Get("redirect_to"))
		switch body["email"] {
		case "taken@example.com":
			writeJSON(w, http.StatusOK, map[string]any{"id": "u9", "email": "taken@example.com", "identities": []any{}})
		case "auto@example.com":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "a2",
				"user":         map[string]any{"id": "u3", "email": "auto@example.com", "confirmed_at": "2024-01-01T00:00:00Z", "identities": []any{map[string]string{"id": "i"}}},
			})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": "u2", "email": body["email"], "identities": []any{map[string]string{"id": "i"}}})
		}
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "email": "ok@example.com"})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer access", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T, secret string) (*Provider, *fakeGoTrue) {
	fake := &fakeGoTrue{t: t}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewProvider(srv.URL, "anon-key", secret, logging.Discard(), nil), fake
}

func TestSignIn(t *testing.T) {
	p, _ := newTestProvider(t, "")
	ctx := context.Background()

	s, err := p.SignIn(ctx, "ok@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "access", s.AccessToken)
	assert.True(t, s.User.Confirmed())

	_, err = p.SignIn(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "pending@example.com", "pw")
	assert.ErrorIs(t, err, domain.ErrEmailNotConfirmed)
}

func TestSignUpShapes(t *testing.T) {
	p, fake := newTestProvider(t, "")
	ctx := context.Background()

	res, err := p.SignUp(ctx, "new@example.com", "pw", "http://localhost:8080/login")
	require.NoError(t, err)
	assert.False(t, res.Existing)
	assert.Nil(t, res.Session)
	assert.Equal(t, "http://localhost:8080/login", fake.signUps[0])

	res, err = p.SignUp(ctx, "taken@example.com", "pw", "")
	require.NoError(t, err)
	assert.True(t, res.Existing)

	res, err = p.SignUp(ctx, "auto@example.com", "pw", "")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "a2", res.Session.AccessToken)
	assert.True(t, res.User.Confirmed())
}

func TestGetUserAndSignOut(t *testing.T) {
	p, _ := newTestProvider(t, "")
	ctx := context.Background()

	u, err := p.GetUser(ctx, "access")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.False(t, u.Confirmed())

	_, err = p.GetUser(ctx, "stale")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	assert.NoError(t, p.SignOut(ctx, "access"))
}

func TestGetUserVerifiesTokenLocally(t *testing.T) {
	p, _ := newTestProvider(t, "jwt-secret")

	_, err := p.GetUser(context.Background(), "access")
	assert.True(t, errors.Is(err, auth.ErrInvalidToken), "unsigned token must be rejected before the network call: %v", err)

	pair, err := auth.IssueTokens("u1", "ok@example.com", "jwt-secret", time.Now())
	require.NoError(t, err)
	_, err = p.GetUser(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "the fake only accepts the literal token")
}
