package ports

import (
	"context"

	"github.com/pocketchange/pocketchange-api/internal/core/domain"
)

// UserRepository is the narrow credential-store contract the auth service
// consumes. Reads return domain.ErrUserNotFound when no account matches;
// Create returns domain.ErrEmailTaken when the email is already registered.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
