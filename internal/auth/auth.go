// Package auth resolves the calling user from a signed session token.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/service"
)

// CookieName is the session cookie set by the login flow.
const CookieName = "auth-token"

type UserLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Resolver struct {
	tokens *TokenManager
	users  UserLoader
}

func NewResolver(tokens *TokenManager, users UserLoader) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve returns the user behind the request's token. A missing or invalid
// token, or a token for a deleted user, is service.ErrUnauthorized.
func (r *Resolver) Resolve(req *http.Request) (*models.User, error) {
	raw := tokenFromRequest(req)
	if raw == "" {
		return nil, fmt.Errorf("%w: missing token", service.ErrUnauthorized)
	}
	claims, err := r.tokens.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrUnauthorized, err)
	}
	user, err := r.users.FindByID(req.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: unknown user", service.ErrUnauthorized)
	}
	return user, nil
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireAdmin is the single admin check for every privileged operation.
func RequireAdmin(user *models.User) (*models.User, error) {
	if user == nil {
		return nil, service.ErrUnauthorized
	}
	if !user.IsAdmin {
		return nil, fmt.Errorf("%w: admin access required", service.ErrForbidden)
	}
	return user, nil
}

type contextKey string

const userContextKey contextKey = "user"

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user stored by the identity middleware, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
