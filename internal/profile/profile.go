// Package profile looks up account owners for response enrichment and
// notification routing. The lookup is best-effort: callers degrade and
// proceed without a profile when it is unavailable.
package profile

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the profile source could not serve the lookup.
var ErrUnavailable = errors.New("profile lookup unavailable")

// Profile describes an account owner.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// Client resolves owner identifiers to profiles.
type Client interface {
	GetOwner(ctx context.Context, ownerID string) (Profile, error)
}
