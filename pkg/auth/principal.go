// Package auth carries caller identity for audit attribution. It
// performs no authorization: a plan is gated by policy and resolved by
// an approver name, and this package only answers "who asked".
package auth

import (
	"context"
	"errors"
)

type contextKey string

const principalKey contextKey = "principal"

// SystemActor is the actor recorded for operations without a caller,
// such as recovery and the approval sweeper.
const SystemActor = "system"

// Principal identifies the caller of a request.
type Principal struct {
	ID    string   `json:"id"`
	Team  string   `json:"team,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// WithPrincipal attaches a Principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the Principal from the context.
func GetPrincipal(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok {
		return Principal{}, errors.New("no principal in context")
	}
	return p, nil
}

// ActorID returns the caller's ID, or SystemActor when the context
// carries no principal.
func ActorID(ctx context.Context) string {
	p, err := GetPrincipal(ctx)
	if err != nil || p.ID == "" {
		return SystemActor
	}
	return p.ID
}
