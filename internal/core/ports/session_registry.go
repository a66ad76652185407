package ports

import "context"

// SessionRegistry tracks at most one live session marker per user in a
// TTL-capable store. The marker is the sole server-side revocation
// mechanism: a refresh token is only honoured while its subject's marker
// exists.
type SessionRegistry interface {
	// Put (re)sets the marker for userID with the configured TTL,
	// overwriting any prior marker and its remaining TTL.
	Put(ctx context.Context, userID string) error
	// Get reports whether a live marker exists for userID.
	Get(ctx context.Context, userID string) (bool, error)
	// Delete removes the marker. Deleting an absent marker is not an error.
	Delete(ctx context.Context, userID string) error
}
