package auth

import (
	"context"
	"net/http"
)

// Authenticator validates request credentials.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns (nil, error) for internal errors and
//   (*Result, nil) for both successes and credential failures.
type Authenticator interface {
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(req *Request) bool

	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// Request carries the credentials of one HTTP request.
type Request struct {
	Headers http.Header
}

// RequestFromHTTP builds a Request from r.
func RequestFromHTTP(r *http.Request) *Request {
	return &Request{Headers: r.Header}
}

// Header returns the first value for key.
func (r *Request) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// Result is the outcome of an authentication attempt.
type Result struct {
	Authenticated bool
	Identity      *Identity
	Err           error
	Method        Method
}

// Success builds an authenticated Result.
func Success(id *Identity) *Result {
	return &Result{Authenticated: true, Identity: id, Method: id.Method}
}

// Failure builds a rejected Result.
func Failure(err error, method Method) *Result {
	return &Result{Err: err, Method: method}
}
