package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pocketchange/pocketchange-api/internal/core/domain"
	"github.com/pocketchange/pocketchange-api/internal/infrastructure/token"
)

// stubUserRepo enforces email uniqueness atomically, like the unique index
// in the real store.
type stubUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	r.seq++
	clone := *user
	clone.ID = "user-" + strconv.Itoa(r.seq)
	r.users[user.Email] = &clone
	copy := clone
	return &copy, nil
}

// stubSessionRegistry is an in-memory marker store without TTL enforcement.
type stubSessionRegistry struct {
	mu      sync.Mutex
	markers map[string]bool
	puts    int
}

func newStubSessionRegistry() *stubSessionRegistry {
	return &stubSessionRegistry{markers: make(map[string]bool)}
}

func (s *stubSessionRegistry) Put(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[userID] = true
	s.puts++
	return nil
}

func (s *stubSessionRegistry) Get(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[userID], nil
}

func (s *stubSessionRegistry) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, userID)
	return nil
}

func (s *stubSessionRegistry) has(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[userID]
}

func newTestService() (*AuthService, *stubUserRepo, *stubSessionRegistry, *token.Issuer) {
	repo := newStubUserRepo()
	sessions := newStubSessionRegistry()
	issuer := token.NewIssuer(token.Config{
		AccessSecret:  "test-access-secret-0123456789-0123",
		RefreshSecret: "test-refresh-secret-0123456789-012",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	svc := NewAuthService(repo, issuer, sessions, nil, bcrypt.MinCost)
	return svc, repo, sessions, issuer
}

func TestRegister_Success(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	user, err := svc.Register(context.Background(), "a@x.com", "pw123456", domain.RoleMember)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if user.PasswordHash == "pw123456" {
		t.Fatalf("password stored unhashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123456")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if sessions.has(user.ID) {
		t.Fatalf("register must not create a session marker")
	}

	// The sanitized view never includes the hash.
	body, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(body), user.PasswordHash) || strings.Contains(string(body), "password") {
		t.Fatalf("serialized user leaks the password hash: %s", body)
	}
}

func TestRegister_InvalidRole(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.Register(context.Background(), "a@x.com", "pw123456", "superuser"); err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.Register(context.Background(), "a@x.com", "pw123456", domain.RoleMember); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@x.com", "other-pass", domain.RoleMember); err != domain.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	svc, repo, _, _ := newTestService()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), "race@x.com", "pw123456", domain.RoleMember)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch err {
		case nil:
			succeeded++
		case domain.ErrEmailTaken:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful register, got %d", succeeded)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected one stored user, got %d", len(repo.users))
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _, sessions, issuer := newTestService()

	user, err := svc.Register(context.Background(), "carol@x.com", "s3cret99", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Login(context.Background(), "carol@x.com", "s3cret99")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, tok := range []string{pair.AccessToken, pair.RefreshToken} {
		if len(strings.Split(tok, ".")) != 3 {
			t.Fatalf("expected three-part signed token, got %q", tok)
		}
	}

	payload, err := issuer.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if payload.Subject != user.ID || payload.Role != domain.RoleAdmin {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if !sessions.has(user.ID) {
		t.Fatalf("login did not create a session marker")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	user, _ := svc.Register(context.Background(), "dave@x.com", "goodpass", domain.RoleMember)

	if _, err := svc.Login(context.Background(), "dave@x.com", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if sessions.has(user.ID) || sessions.puts != 0 {
		t.Fatalf("failed login must not touch the session registry")
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	// Unknown email fails with the same error as a wrong password.
	if _, err := svc.Login(context.Background(), "ghost@x.com", "whatever1"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_Success(t *testing.T) {
	svc, _, _, issuer := newTestService()

	user, _ := svc.Register(context.Background(), "erin@x.com", "pw123456", domain.RoleMember)
	pair, err := svc.Login(context.Background(), "erin@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	payload, err := issuer.VerifyAccess(access)
	if err != nil {
		t.Fatalf("minted access token invalid: %v", err)
	}
	if payload.Subject != user.ID {
		t.Fatalf("subject mismatch: got %q want %q", payload.Subject, user.ID)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.Refresh(context.Background(), "garbage.token.here"); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, _ = svc.Register(context.Background(), "fred@x.com", "pw123456", domain.RoleMember)
	pair, err := svc.Login(context.Background(), "fred@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The short-lived access token must never pass the refresh verifier.
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_AfterLogout(t *testing.T) {
	svc, _, _, _ := newTestService()

	user, _ := svc.Register(context.Background(), "gail@x.com", "pw123456", domain.RoleMember)
	pair, err := svc.Login(context.Background(), "gail@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// The refresh token is still unexpired and validly signed; only the
	// revoked session marker stands in the way.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err != domain.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	svc, _, _, _ := newTestService()

	if err := svc.Logout(context.Background(), "never-logged-in"); err != nil {
		t.Fatalf("logout of absent session: %v", err)
	}
	if err := svc.Logout(context.Background(), "never-logged-in"); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestAuthLifecycle_EndToEnd(t *testing.T) {
	svc, _, _, issuer := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@x.com", "pw123456", domain.RoleMember)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Login(ctx, "a@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	payload, err := issuer.VerifyAccess(access)
	if err != nil {
		t.Fatalf("refreshed access token invalid: %v", err)
	}
	if payload.Subject != user.ID {
		t.Fatalf("subject mismatch after refresh")
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != domain.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired after logout, got %v", err)
	}
}
