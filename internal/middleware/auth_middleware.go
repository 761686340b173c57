package middleware

import (
	"context"
	"net/http"
	"strings"

	"fitsocial/internal/auth"
	"fitsocial/internal/config"
)

// contextKey is a private type for context values, avoiding key collisions.
type contextKey string

// UserIDKey is the context key carrying the authenticated user id.
const UserIDKey contextKey = "userID"

// UsernameKey is the context key carrying the authenticated username.
const UsernameKey contextKey = "username"

// AuthMiddleware validates the Bearer token and stores the caller's identity
// in the request context.
func AuthMiddleware(next http.Handler, authCfg config.AuthConfig, blacklist auth.TokenBlacklist) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization token", http.StatusUnauthorized)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
			http.Error(w, "invalid authorization header, expected Bearer {token}", http.StatusUnauthorized)
			return
		}

		tokenString := headerParts[1]
		claims, err := auth.ValidateToken(r.Context(), tokenString, authCfg.JWTSecretKey, blacklist)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext extracts the user id stored by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetUsernameFromContext extracts the username stored by AuthMiddleware.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
