package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Middleware authenticates each request with authn and authorizes action
// with authz. Unauthenticated requests get 401, denied ones 403. With no
// authenticators configured every request is rejected.
func Middleware(authn Authenticator, authz Authorizer, action string) func(http.Handler) http.Handler {
	if authz == nil {
		authz = DenyAll()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				writeError(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}
			res, err := authn.Authenticate(r.Context(), RequestFromHTTP(r))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if !res.Authenticated {
				w.Header().Set("WWW-Authenticate", `Bearer realm="listicons"`)
				writeError(w, http.StatusUnauthorized, res.Err)
				return
			}
			if err := authz.Authorize(r.Context(), res.Identity, action); err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, ErrForbidden) {
					status = http.StatusForbidden
				}
				writeError(w, status, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
		})
	}
}

// Optional attaches the identity of requests whose credentials authenticate
// and passes every other request through unchanged.
func Optional(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				next.ServeHTTP(w, r)
				return
			}
			req := RequestFromHTTP(r)
			if !authn.Supports(req) {
				next.ServeHTTP(w, r)
				return
			}
			res, err := authn.Authenticate(r.Context(), req)
			if err != nil || !res.Authenticated {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil && status != http.StatusInternalServerError {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
