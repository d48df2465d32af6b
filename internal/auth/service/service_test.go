package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"classifieds_backend/internal/auth/repository"
	"classifieds_backend/internal/events"
	"classifieds_backend/platform/apperr"
	"classifieds_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string       { return "secret" }
func (testConfig) GetAccessTokenTTL() time.Duration { return time.Hour }

type memoryRepo struct {
	mu    sync.Mutex
	users map[string]repository.User
	roles map[uuid.UUID][]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]repository.User), roles: make(map[uuid.UUID][]string)}
}

func (m *memoryRepo) CreateUser(_ context.Context, email, hash string, roles []string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return repository.User{}, repository.ErrDuplicateEmail
	}
	u := repository.User{ID: uuid.New(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.users[email] = u
	m.roles[u.ID] = roles
	return u, nil
}

func (m *memoryRepo) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (m *memoryRepo) GetUserRoles(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[id], nil
}

func newTestService(t *testing.T) (*Service, *events.InMemoryBus) {
	t.Helper()
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	return New(newMemoryRepo(), testConfig{}, bus, log), bus
}

func TestRegisterPublishesEventAndRejectsDuplicates(t *testing.T) {
	svc, bus := newTestService(t)

	var got []events.UserRegistered
	var mu sync.Mutex
	bus.Subscribe(events.UserRegistered{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(events.UserRegistered))
		return nil
	}))

	user, err := svc.Register(context.Background(), " Alice@Example.com ", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	_, err = svc.Register(context.Background(), "alice@example.com", "password123")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	bus.Wait()
	if len(got) != 1 || got[0].UserID != user.ID {
		t.Fatalf("expected one UserRegistered event, got %+v", got)
	}
}

func TestLoginIssuesAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.Register(context.Background(), "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := svc.Login(context.Background(), "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.ExpiresIn != time.Hour {
		t.Fatalf("expected 1h expiry, got %s", token.ExpiresIn)
	}

	parsed, err := jwt.Parse(token.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("expected valid token, got %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.String() || claims["type"] != "access" {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "carol@example.com", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tc := range []struct{ email, password string }{
		{"carol@example.com", "wrong-password"},
		{"nobody@example.com", "password123"},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.password)
		if apperr.GetKind(err) != apperr.KindUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", tc.email, err)
		}
	}
}

func TestGetMeReturnsProfile(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.Register(context.Background(), "dan@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, err := svc.GetMe(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "dan@example.com" || len(profile.Roles) != 1 || profile.Roles[0] != "user" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	_, err = svc.GetMe(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
