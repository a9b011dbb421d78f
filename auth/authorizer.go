package auth

import (
	"context"
	"fmt"
)

// Authorizer decides whether an identity may perform action.
type Authorizer interface {
	Authorize(ctx context.Context, id *Identity, action string) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, id *Identity, action string) error

func (f AuthorizerFunc) Authorize(ctx context.Context, id *Identity, action string) error {
	return f(ctx, id, action)
}

// AuthzError describes a denied action. It matches ErrForbidden.
type AuthzError struct {
	Principal string
	Action    string
	Reason    string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: principal=%q action=%q reason=%q", e.Principal, e.Action, e.Reason)
}

func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// RequireRole permits identities holding role.
func RequireRole(role string) Authorizer {
	return AuthorizerFunc(func(_ context.Context, id *Identity, action string) error {
		if id.HasRole(role) {
			return nil
		}
		principal := ""
		if id != nil {
			principal = id.Principal
		}
		return &AuthzError{Principal: principal, Action: action, Reason: "missing role " + role}
	})
}

// DenyAll rejects every action.
func DenyAll() Authorizer {
	return AuthorizerFunc(func(_ context.Context, id *Identity, action string) error {
		principal := ""
		if id != nil {
			principal = id.Principal
		}
		return &AuthzError{Principal: principal, Action: action, Reason: "all requests denied"}
	})
}
