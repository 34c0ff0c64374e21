package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/utils"
)

// RequireRole restricts a route to the given roles. The role local is set by
// the JWT middleware; requests without one are refused.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		raw, _ := c.Locals("user_role").(string)
		role, err := models.ParseRole(strings.TrimSpace(raw))
		if err != nil {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
