package repository

import (
	"context"

	"github.com/google/uuid"
)

// AuthRepository defines the interface for authentication data operations.
// This allows services to depend on an abstraction rather than concrete implementation,
// improving testability and modularity.
type AuthRepository interface {
	// User operations
	CreateUser(ctx context.Context, email, passwordHash string, roles []string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)

	// Role operations
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Ensure Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
