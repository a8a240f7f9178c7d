package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

type contextKey string

const (
	ownerKey     contextKey = "owner"
	requestIDKey contextKey = "request_id"
)

// APIKeyAuth resolves the caller from "Authorization: Bearer <key>" (or a bare
// key) to the owner configured for that key.
func APIKeyAuth(owners map[string]report.Owner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			// compare against every key so timing does not leak which one matched
			var (
				owner report.Owner
				found bool
			)
			for key, o := range owners {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					owner, found = o, true
				}
			}
			if !found {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

func WithOwner(ctx context.Context, o report.Owner) context.Context {
	return context.WithValue(ctx, ownerKey, o)
}

// OwnerFromContext returns the authenticated owner set by APIKeyAuth.
func OwnerFromContext(ctx context.Context) (report.Owner, bool) {
	o, ok := ctx.Value(ownerKey).(report.Owner)
	return o, ok && o.ID != ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
