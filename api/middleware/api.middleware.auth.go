// FilePath: api/middleware/api.middleware.auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ecohack/envhub/internal/errors"
	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/models"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

type contextKey string

const ownerContextKey contextKey = "owner"

const tokenCachePrefix = "owner_token:"

// TokenAuthMiddleware resolves opaque bearer tokens to owners. Lookups go
// through an optional redis cache before hitting the database.
type TokenAuthMiddleware struct {
	hub   *hubservice.HubService
	cache *redis.Client
	ttl   time.Duration
}

// NewTokenAuthMiddleware creates the middleware. cache may be nil, in which
// case every request resolves against the database.
func NewTokenAuthMiddleware(hub *hubservice.HubService, cache *redis.Client, ttl time.Duration) *TokenAuthMiddleware {
	return &TokenAuthMiddleware{
		hub:   hub,
		cache: cache,
		ttl:   ttl,
	}
}

// Authenticate validates the bearer token and adds the owner to the context
func (m *TokenAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.handleError(w, errors.NewAuthError("no authorization header", nil))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.handleError(w, errors.NewAuthError("invalid authorization header format", nil))
			return
		}
		token := parts[1]

		owner, err := m.resolveOwner(r.Context(), token)
		if err != nil {
			if apiErr, ok := err.(*errors.APIError); ok {
				m.handleError(w, apiErr)
			} else {
				m.handleError(w, errors.NewAuthError("token verification failed", err))
			}
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *TokenAuthMiddleware) resolveOwner(ctx context.Context, token string) (*models.Owner, error) {
	if m.cache != nil {
		if owner, ok := m.cachedOwner(ctx, token); ok {
			return owner, nil
		}
	}

	owner, err := m.hub.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		if data, err := json.Marshal(owner); err == nil {
			if err := m.cache.Set(ctx, tokenCachePrefix+token, data, m.ttl).Err(); err != nil {
				nuts.L.Warnf("[Auth] Failed to cache token lookup: %v", err)
			}
		}
	}

	return owner, nil
}

func (m *TokenAuthMiddleware) cachedOwner(ctx context.Context, token string) (*models.Owner, bool) {
	data, err := m.cache.Get(ctx, tokenCachePrefix+token).Bytes()
	if err != nil {
		if err != redis.Nil {
			nuts.L.Warnf("[Auth] Token cache lookup failed: %v", err)
		}
		return nil, false
	}

	var owner models.Owner
	if err := json.Unmarshal(data, &owner); err != nil {
		nuts.L.Warnf("[Auth] Corrupt token cache entry: %v", err)
		return nil, false
	}
	return &owner, true
}

// OwnerFromContext extracts the authenticated owner from the request context
func OwnerFromContext(ctx context.Context) (*models.Owner, bool) {
	owner, ok := ctx.Value(ownerContextKey).(*models.Owner)
	return owner, ok
}

func (m *TokenAuthMiddleware) handleError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
