package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"instaguard/internal/db"
	"instaguard/internal/models"
)

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetUserBySub(_ context.Context, sub string) (*models.User, error) {
	if u, ok := f.users[sub]; ok {
		return u, nil
	}
	return nil, db.ErrUserNotFound
}

func (f *fakeUsers) UpsertUser(_ context.Context, u *models.User) error {
	if existing, ok := f.users[u.Sub]; ok {
		*u = *existing
		return nil
	}
	u.ID = uuid.New()
	f.users[u.Sub] = u
	return nil
}

func newApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	ok := func(c fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		return c.SendString(user.Role)
	}
	app.Get("/api/thing", m.RequireAuth, ok)
	app.Get("/page", m.RequireAuth, ok)
	app.Get("/api/admin/thing", m.RequireAuth, m.RequireAdmin, ok)
	app.Get("/open", m.OptionalAuth, func(c fiber.Ctx) error {
		if _, ok := c.Locals("user").(*models.User); ok {
			return c.SendString("user")
		}
		return c.SendString("anonymous")
	})
	return app
}

func TestRequireAuth_Unauthenticated(t *testing.T) {
	app := newApp(NewAuthMiddleware(&fakeUsers{users: map[string]*models.User{}}, false))

	tests := []struct {
		name     string
		path     string
		status   int
		location string
	}{
		{"api gets json 401", "/api/thing", fiber.StatusUnauthorized, ""},
		{"page redirects to login", "/page", fiber.StatusSeeOther, "/auth/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := resp.Header.Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestDevAuth(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{}}
	app := newApp(NewAuthMiddleware(users, true))

	for _, path := range []string{"/api/thing", "/api/admin/thing"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, resp.StatusCode)
		}
	}
	if _, ok := users.users[devUserSub]; !ok {
		t.Error("dev user should be provisioned in the store")
	}
}

func TestRequireAdmin_Forbidden(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		devUserSub: {ID: uuid.New(), Sub: devUserSub, Role: models.RoleUser},
	}}
	app := newApp(NewAuthMiddleware(users, true))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/thing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestOptionalAuth(t *testing.T) {
	app := newApp(NewAuthMiddleware(&fakeUsers{users: map[string]*models.User{}}, false))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
