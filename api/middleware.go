package api

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Session gates a route behind a valid session token, delivered either as the
// session cookie or an Authorization bearer header. The verified claims are
// stored on the request context for handlers.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		token := sessionTokenFromRequest(r)
		if token == "" {
			zap.S().Errorw("unauthenticated",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthenticated"}`))
			return
		}

		claims, err := VerifySessionToken(token)
		if err != nil {
			zap.S().Errorw("invalid session token",
				"url", r.URL,
				"error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthenticated"}`))
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole wraps a handler so only sessions holding one of the given roles
// may invoke it. Role gating is enforced server-side here, not just in the UI.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionFromContext(r.Context())
			if claims == nil {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "unauthenticated"}`))
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			zap.S().Errorw("forbidden",
				"url", r.URL,
				"role", claims.Role)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "forbidden"}`))
		})
	}
}

// SessionFromContext returns the verified session claims stored by the
// Session middleware, or nil when the request carried none
func SessionFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(sessionContextKey).(*SessionClaims)
	return claims
}

// ContextWithSession stores session claims on a context. Exported for tests.
func ContextWithSession(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionContextKey, claims)
}

func sessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
