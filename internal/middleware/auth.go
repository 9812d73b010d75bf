package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"instaguard/internal/models"
)

// devUserSub identifies the local user that stands in for OIDC in development.
const devUserSub = "dev-local"

// UserStore loads and provisions users.
type UserStore interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	db      UserStore
	devAuth bool
}

// NewAuthMiddleware creates a new auth middleware instance. When devAuth is
// true and no session user exists, requests run as a local admin user.
func NewAuthMiddleware(db UserStore, devAuth bool) *AuthMiddleware {
	return &AuthMiddleware{db: db, devAuth: devAuth}
}

// RequireAuth ensures the user is authenticated. API requests get a JSON 401;
// page requests are redirected to /auth/login.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user := m.loadUser(c)
	if user == nil {
		if isAPI(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "error",
				"error":  "authentication required",
			})
		}
		if sess := session.FromContext(c); sess != nil {
			sess.Set("redirect_after_login", c.OriginalURL())
		}
		return c.Redirect().To("/auth/login")
	}

	c.Locals("user", user)
	return c.Next()
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(c fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || !user.IsAdmin() {
		if isAPI(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status": "error",
				"error":  "admin access required",
			})
		}
		return fiber.NewError(fiber.StatusForbidden, "Admin access required")
	}
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	if user := m.loadUser(c); user != nil {
		c.Locals("user", user)
	}
	return c.Next()
}

func (m *AuthMiddleware) loadUser(c fiber.Ctx) *models.User {
	if sess := session.FromContext(c); sess != nil {
		if sub, ok := sess.Get("user_sub").(string); ok && sub != "" {
			user, err := m.db.GetUserBySub(c.Context(), sub)
			if err == nil {
				return user
			}
			sess.Delete("user_sub")
		}
	}

	if m.devAuth {
		return m.devUser(c.Context())
	}
	return nil
}

func (m *AuthMiddleware) devUser(ctx context.Context) *models.User {
	user := &models.User{
		Sub:   devUserSub,
		Email: "dev@localhost",
		Name:  "Local Developer",
		Role:  models.RoleAdmin,
	}
	if err := m.db.UpsertUser(ctx, user); err != nil {
		return nil
	}
	return user
}

func isAPI(c fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}
