package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pocketchange/pocketchange-api/internal/api/metrics"
	"github.com/pocketchange/pocketchange-api/internal/core/domain"
	"github.com/pocketchange/pocketchange-api/internal/core/ports"
)

// AuthService orchestrates the credential store, token issuer, and session
// registry into the register / login / refresh / logout protocols. It holds
// no mutable state of its own; all shared state lives in the injected
// collaborators, so concurrent requests need no internal locking.
type AuthService struct {
	users      ports.UserRepository
	tokens     ports.TokenIssuer
	sessions   ports.SessionRegistry
	audit      ports.AuditSink
	bcryptCost int
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenIssuer,
	sessions ports.SessionRegistry,
	audit ports.AuditSink,
	bcryptCost int,
) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		audit:      audit,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new account. The email is pre-checked before insertion
// so a duplicate surfaces as domain.ErrEmailTaken rather than a generic
// failure; the store's unique index closes the remaining race window.
// Register performs no token or session work.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		return nil, domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("check email: %w", err)
	}

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return nil, domain.ErrEmailTaken
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	s.record(ports.AuditRegister, created.ID, "ok")
	return created, nil
}

// Login verifies credentials, mints both token kinds, and (re)sets the
// session marker. Unknown email and wrong password are indistinguishable
// to the caller: both fail domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			s.record(ports.AuditLogin, email, "rejected")
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		s.record(ports.AuditLogin, user.ID, "rejected")
		return nil, domain.ErrInvalidCredentials
	}

	payload := domain.TokenPayload{Subject: user.ID, Role: user.Role}
	access, err := s.tokens.SignAccess(payload)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.SignRefresh(payload)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.sessions.Put(ctx, user.ID); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("store session: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.record(ports.AuditLogin, user.ID, "ok")
	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is never rotated. A verified token whose subject has
// no live session marker fails domain.ErrSessionExpired, telling the caller
// to log in again rather than retry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("invalid_token").Inc()
		return "", domain.ErrInvalidToken
	}

	live, err := s.sessions.Get(ctx, payload.Subject)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("check session: %w", err)
	}
	if !live {
		metrics.TokenRefreshesTotal.WithLabelValues("session_expired").Inc()
		s.record(ports.AuditRefresh, payload.Subject, "session_expired")
		return "", domain.ErrSessionExpired
	}

	access, err := s.tokens.SignAccess(payload)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	s.record(ports.AuditRefresh, payload.Subject, "ok")
	return access, nil
}

// Logout deletes the session marker for userID. Idempotent: logging out an
// already-logged-out user succeeds. Subsequent refresh attempts fail
// domain.ErrSessionExpired even with a still-unexpired refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	metrics.LogoutsTotal.Inc()
	s.record(ports.AuditLogout, userID, "ok")
	return nil
}

func (s *AuthService) record(action, subject, outcome string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ports.AuditEvent{
		ID:      uuid.NewString(),
		Action:  action,
		Subject: subject,
		Outcome: outcome,
		At:      time.Now().UTC(),
	})
}
