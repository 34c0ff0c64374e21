package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/innotech/lms-api/internal/apperr"
	"github.com/innotech/lms-api/internal/authz"
	"github.com/innotech/lms-api/internal/middleware"
	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/service"
	"github.com/innotech/lms-api/internal/utils"
)

// actorFromContext reconstructs the authenticated principal from the locals
// set by the JWT middleware.
func actorFromContext(c *fiber.Ctx) authz.Actor {
	actor := authz.Actor{
		ID:     userIDFromContext(c),
		Active: userActiveFromContext(c),
	}

	if role, err := models.ParseRole(userRoleFromContext(c)); err == nil {
		actor.Role = role
	}

	return actor
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func userActiveFromContext(c *fiber.Ctx) bool {
	if v := c.Locals("user_active"); v != nil {
		if active, ok := v.(bool); ok {
			return active
		}
	}
	return true
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := c.Params(key)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return parsed, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// handleError maps service errors onto HTTP statuses. All handlers share the
// same mapping so a given failure renders identically everywhere.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	if errors.Is(err, service.ErrInvalidCredentials) {
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case apperr.KindForbidden:
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case apperr.KindValidation:
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case apperr.KindConflict:
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case apperr.KindStorageUnavailable:
		requestLogger(logger, c).Error().Err(err).Msg("storage unavailable")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
