package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/common/security"
	"github.com/Zeygath/th-2024/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	IdentityCtxKey contextKey = "identity"
	SessionCtxKey  contextKey = "session"
)

// Session identifies the bearer token of the current request, for logout.
type Session struct {
	TokenID   string
	ExpiresAt time.Time
}

type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (*model.Identity, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Auth turns a verified session token into a resolved identity. It expects
// jwtauth.Verifier to have run earlier in the chain.
type Auth struct {
	identities IdentityResolver
	revoked    RevocationChecker
}

func NewAuth(identities IdentityResolver, revoked RevocationChecker) *Auth {
	return &Auth{identities: identities, revoked: revoked}
}

func (a *Auth) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, claims, err := jwtauth.FromContext(ctx)
		if err != nil {
			if errors.Is(err, jwtauth.ErrNoTokenFound) {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}
		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			return
		}
		if security.GetPurposeFromClaims(claims) != security.PurposeSession {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: not a session token")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		jti := token.JwtID()
		if jti != "" {
			revoked, err := a.revoked.IsRevoked(ctx, jti)
			if err != nil {
				// Fail closed: a signed-out token must not slip through during an outage.
				logrus.WithError(err).Error("Token denylist lookup failed")
				common.RespondWithError(w, http.StatusServiceUnavailable, common.ErrServiceUnavailable.Error())
				return
			}
			if revoked {
				common.RespondWithError(w, http.StatusUnauthorized, "Token has been revoked")
				return
			}
		}

		identity, err := a.identities.Resolve(ctx, userID)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}

		ctx = WithIdentity(ctx, identity)
		ctx = context.WithValue(ctx, SessionCtxKey, Session{TokenID: jti, ExpiresAt: token.Expiration()})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			return
		}
		if !identity.IsAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityCtxKey, identity)
}

// Helper to get the caller's identity from context
func GetIdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(IdentityCtxKey).(*model.Identity)
	return identity, ok && identity != nil
}

func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionCtxKey).(Session)
	return s, ok
}
