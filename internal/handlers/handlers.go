// Package handlers serves the HTML pages: the classify form, decision
// history and the operator audit view.
package handlers

import (
	"html"

	"github.com/gofiber/fiber/v3"
)

// htmxError returns an error message as HTML that HTMX will display.
// Uses 200 status so HTMX processes the swap (HTMX ignores non-2xx by default).
func htmxError(c fiber.Ctx, message string) error {
	return c.SendString(
		`<div class="notice notice-error">` + html.EscapeString(message) + `</div>`,
	)
}
