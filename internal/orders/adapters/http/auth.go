package http

import (
	"net/http"
	"slices"

	"github.com/dejobratic/petstore/internal/auth"
)

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func Authenticate(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="petstore"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			identity, err := verifier.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="petstore", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole lets through only callers holding one of roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
				return
			}
			if !slices.Contains(roles, identity.Role) {
				writeError(w, http.StatusForbidden, "forbidden", "role "+string(identity.Role)+" may not perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// scopedCustomer returns the customer id a request is restricted to: the
// caller's own id for customers, "" for managers.
func scopedCustomer(r *http.Request) string {
	identity, _ := auth.FromContext(r.Context())
	if identity.Role.IsManager() {
		return ""
	}
	return identity.Subject
}
