package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Zeygath/th-2024/internal/common/security"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, userID string) (*model.Identity, error)

func (f resolverFunc) Resolve(ctx context.Context, userID string) (*model.Identity, error) {
	return f(ctx, userID)
}

type checkerFunc func(ctx context.Context, jti string) (bool, error)

func (f checkerFunc) IsRevoked(ctx context.Context, jti string) (bool, error) { return f(ctx, jti) }

func setupJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("mw-secret"), JWTExp: time.Hour}
	security.InitJWT()
}

func chain(a *Auth, next http.Handler) http.Handler {
	return jwtauth.Verifier(security.TokenAuth)(a.Authenticator(next))
}

func TestAuthenticatorPutsIdentityAndSessionInContext(t *testing.T) {
	setupJWT(t)
	resolver := resolverFunc(func(_ context.Context, userID string) (*model.Identity, error) {
		return &model.Identity{User: &model.User{ID: userID}}, nil
	})
	notRevoked := checkerFunc(func(context.Context, string) (bool, error) { return false, nil })

	var gotIdentity *model.Identity
	var gotSession Session
	h := chain(NewAuth(resolver, notRevoked), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = GetIdentityFromContext(r.Context())
		gotSession, _ = GetSessionFromContext(r.Context())
	}))

	token, err := security.GenerateToken("u1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotIdentity)
	assert.Equal(t, "u1", gotIdentity.UserID())
	assert.NotEmpty(t, gotSession.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), gotSession.ExpiresAt, time.Minute)
}

func TestAuthenticatorFailsClosedOnDenylistOutage(t *testing.T) {
	setupJWT(t)
	resolver := resolverFunc(func(context.Context, string) (*model.Identity, error) {
		t.Fatal("identity must not be resolved")
		return nil, nil
	})
	broken := checkerFunc(func(context.Context, string) (bool, error) { return false, errors.New("redis down") })

	token, err := security.GenerateToken("u1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain(NewAuth(resolver, broken), http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	tests := []struct {
		name     string
		identity *model.Identity
		want     int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"player", &model.Identity{User: &model.User{ID: "p"}}, http.StatusForbidden},
		{"admin", &model.Identity{User: &model.User{ID: "a"}, IsAdmin: true}, http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
