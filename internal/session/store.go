// Package session stores the current logged-in user id, durable and
// independent from the document so login state survives data resets.
package session

import "context"

// Store is the session pointer backend.
type Store interface {
	// Current returns the logged-in user id, or "" when nobody is.
	Current(ctx context.Context) (string, error)
	// Save records the logged-in user id.
	Save(ctx context.Context, userID string) error
	// Clear logs out.
	Clear(ctx context.Context) error
}
