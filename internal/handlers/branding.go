package handlers

import (
	"github.com/gofiber/fiber/v3"

	"instaguard/internal/config"
	"instaguard/internal/models"
)

// MergeBranding adds site branding and the current user to a fiber.Map for
// template rendering.
func MergeBranding(c fiber.Ctx, data fiber.Map, cfg *config.Config) fiber.Map {
	data["SiteTitle"] = cfg.SiteTitle
	if user, ok := c.Locals("user").(*models.User); ok {
		data["User"] = user
	}
	return data
}
