package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/innotech/lms-api/internal/dto"
	"github.com/innotech/lms-api/internal/repository"
	"github.com/innotech/lms-api/internal/utils"
)

// ActivityHandler exposes the audit trail to administrators.
type ActivityHandler struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(repo repository.ActivityLogRepository, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		repo:   repo,
		logger: logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Callers must
// guard the group with an admin role check.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	filter := repository.ActivityLogFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
	}

	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ActorID = actorID

	if filter.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	entries, total, err := h.repo.List(c.Context(), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity log")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "service temporarily unavailable")
	}

	return utils.SendSuccess(c, "activity retrieved", fiber.Map{
		"items": dto.NewActivityLogResponseSlice(entries),
		"total": total,
	})
}
