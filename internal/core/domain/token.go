package domain

import "errors"

// ErrInvalidToken covers bad signature, malformed structure, and expiry.
// The causes are deliberately not distinguished to the caller.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrSessionExpired means the refresh token verified fine but no live
// session marker exists for its subject: the session was revoked or aged
// out server-side and the caller must log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// TokenPayload is the authenticated identity carried by both token kinds.
type TokenPayload struct {
	Subject string
	Role    string
}
