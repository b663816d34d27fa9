package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/flynn-ai/genai/pkg/protocol"
)

// CodeUnauthorized is the errorCode of rejected credentials.
const CodeUnauthorized = "UNAUTHORIZED"

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

// TokenLookup resolves a bearer token to a caller.
type TokenLookup func(token string) (Identity, bool)

// Auth requires an "Authorization: Bearer <token>" header known to lookup.
func Auth(lookup TokenLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, "No token, authorization denied")
				return
			}

			id, ok := lookup(token)
			if !ok {
				unauthorized(w, "Token is not valid")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Message:   msg,
		ErrorCode: CodeUnauthorized,
		Timestamp: protocol.Timestamp(time.Now()),
	})
}

// OptionalAuth attaches the caller when a known bearer token is present
// and lets every request through.
func OptionalAuth(lookup TokenLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r.Header.Get("Authorization")); token != "" {
				if id, ok := lookup(token); ok {
					r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
