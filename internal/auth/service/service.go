package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"classifieds_backend/internal/auth/password"
	"classifieds_backend/internal/auth/repository"
	"classifieds_backend/internal/events"
	"classifieds_backend/platform/apperr"
	"classifieds_backend/platform/config"
	"classifieds_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType = "access"
	defaultRole     = "user"
	msgBadLogin     = "invalid credentials"
)

// Profile is the public view of an account.
type Profile struct {
	ID            uuid.UUID
	Email         string
	EmailVerified bool
	Roles         []string
	CreatedAt     time.Time
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

type Service struct {
	repo repository.AuthRepository
	cfg  config.AuthServiceConfig
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo repository.AuthRepository, cfg config.AuthServiceConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, log: log, now: time.Now}
}

// Register creates an account and announces it.
func (s *Service) Register(ctx context.Context, email, plainPassword string) (repository.User, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return repository.User{}, err
	}

	user, err := s.repo.CreateUser(ctx, normalizeEmail(email), hash, []string{defaultRole})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return repository.User{}, apperr.Conflict("email already registered").WithOp("auth.Register")
		}
		return repository.User{}, err
	}

	s.log.AuthEvent("register", user.Email, true, "")
	s.bus.Publish(ctx, events.UserRegistered{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
	})
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (Token, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.AuthEvent("login", email, false, "unknown email")
			return Token{}, apperr.Unauthorized(msgBadLogin)
		}
		return Token{}, err
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("login", user.Email, false, "password mismatch")
		return Token{}, apperr.Unauthorized(msgBadLogin)
	}

	roles, err := s.repo.GetUserRoles(ctx, user.ID)
	if err != nil {
		return Token{}, err
	}

	ttl := s.cfg.GetAccessTokenTTL()
	accessToken, err := s.signJWT(user.ID, roles, ttl)
	if err != nil {
		return Token{}, err
	}

	s.log.AuthEvent("login", user.Email, true, "")
	return Token{AccessToken: accessToken, ExpiresIn: ttl}, nil
}

// GetMe returns the profile of userID.
func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, apperr.NotFound("user not found")
		}
		return Profile{}, err
	}

	roles, err := s.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Roles:         roles,
		CreatedAt:     user.CreatedAt,
	}, nil
}

func (s *Service) signJWT(userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": roles,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
