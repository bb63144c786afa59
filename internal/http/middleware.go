package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userRoleKey  contextKey = "user_role"
	sessionIDKey contextKey = "session_id"
	requestIDKey contextKey = "request_id"
)

// MockAuthMiddleware simulates JWT authentication (replace with real JWT
// validation). It trusts X-User-ID/X-User-Role for authenticated callers
// and X-Session-ID for guests.
func MockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			ctx = context.WithValue(ctx, userIDKey, userID)
			if role := r.Header.Get("X-User-Role"); role != "" {
				ctx = context.WithValue(ctx, userRoleKey, role)
			}
		}
		if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
			ctx = context.WithValue(ctx, sessionIDKey, sessionID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func sessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

func isPrivileged(ctx context.Context) bool {
	role, _ := ctx.Value(userRoleKey).(string)
	return role == "admin"
}

// ownerFromContext resolves the cart owner: an authenticated user wins
// over a guest session.
func ownerFromContext(ctx context.Context) (domain.Owner, bool) {
	if userID := userIDFromContext(ctx); userID != "" {
		return domain.UserOwner(userID), true
	}
	if sessionID := sessionIDFromContext(ctx); sessionID != "" {
		return domain.GuestOwner(sessionID), true
	}
	return domain.Owner{}, false
}
