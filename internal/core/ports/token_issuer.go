package ports

import "github.com/pocketchange/pocketchange-api/internal/core/domain"

// TokenIssuer signs and verifies the two token kinds. Access and refresh
// tokens use independent secrets and lifetimes: a token minted by one pair
// of methods must never verify through the other pair. Verification
// failures of any cause collapse to domain.ErrInvalidToken.
type TokenIssuer interface {
	SignAccess(payload domain.TokenPayload) (string, error)
	VerifyAccess(token string) (domain.TokenPayload, error)
	SignRefresh(payload domain.TokenPayload) (string, error)
	VerifyRefresh(token string) (domain.TokenPayload, error)
}
