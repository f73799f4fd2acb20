package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/metrics"
)

// Context key for storing claims
type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims attached by Middleware, if any
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// Middleware authenticates requests with a Bearer token or an API key
type Middleware struct {
	jwtManager *JWTManager
	keyStore   *APIKeyStore
	logger     logging.Logger
	registry   *metrics.Registry
}

// NewMiddleware creates an authentication middleware. Either manager may
// be nil to disable that method.
func NewMiddleware(jwtManager *JWTManager, keyStore *APIKeyStore, logger logging.Logger, registry *metrics.Registry) *Middleware {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Middleware{
		jwtManager: jwtManager,
		keyStore:   keyStore,
		logger:     logger.With(logging.Component("auth")),
		registry:   registry,
	}
}

// Require wraps a handler so it only runs for authenticated requests
func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Try JWT token first (Authorization: Bearer <token>)
		authHeader := r.Header.Get("Authorization")
		if m.jwtManager != nil && strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := m.jwtManager.ValidateToken(r.Context(), token)
			if err != nil {
				m.logger.Warn("Token validation failed", logging.Error(err))
				m.reject(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Try API key (X-API-Key: <key>)
		apiKey := r.Header.Get("X-API-Key")
		if m.keyStore != nil && apiKey != "" {
			key, err := m.keyStore.ValidateKey(apiKey)
			if err != nil {
				m.logger.Warn("API key validation failed", logging.Error(err))
				m.reject(w, "Invalid or expired API key")
				return
			}

			claims := &Claims{
				Subject: key.Name,
				Role:    key.Role,
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		m.reject(w, "Missing authentication (Bearer token or X-API-Key header required)")
	}
}

// RequireRole wraps a handler so it only runs for the given roles.
// Admins always pass.
func (m *Middleware) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return m.Require(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			m.reject(w, "Missing authentication")
			return
		}
		if claims.Role == RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "Insufficient role", http.StatusForbidden)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, msg string) {
	if m.registry != nil {
		m.registry.RecordAuthFailure()
	}
	http.Error(w, msg, http.StatusUnauthorized)
}
