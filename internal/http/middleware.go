package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const (
	userIDKey   ctxKey = "user_id"
	userRoleKey ctxKey = "user_role"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// AuthMiddleware takes the caller identity from X-User-ID and X-User-Role.
// Authentication happens upstream; this service trusts those headers.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role")))
		if role == "" {
			role = RoleCustomer
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, userRoleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaff rejects callers that are neither staff nor admin.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserIDFromContext(r.Context()) == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}
		if !isStaff(r.Context()) {
			respondError(w, http.StatusForbidden, "permission_denied", "staff role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware returns the ID assigned by middleware.RequestID in the
// X-Request-ID response header. It must run after middleware.RequestID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := getRequestID(r.Context()); requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		next.ServeHTTP(w, r)
	})
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func isStaff(ctx context.Context) bool {
	role, _ := ctx.Value(userRoleKey).(string)
	return role == RoleStaff || role == RoleAdmin
}

func getRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
