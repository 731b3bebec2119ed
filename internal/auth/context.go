package auth

import (
	"context"

	"github.com/google/uuid"
)

// Authentication methods recorded on the UserContext
const (
	MethodAPIKey = "api_key"
	MethodJWT    = "jwt"
)

// RoleAdmin is required for destructive and bulk operations
const RoleAdmin = "admin"

// SystemUserID identifies requests authenticated with the API key
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Roles       []string
	Method      string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSystem reports whether the request came in with the API key
func (u *UserContext) IsSystem() bool {
	return u.Method == MethodAPIKey
}
