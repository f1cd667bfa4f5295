package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/service"
	"github.com/noah-isme/lanex-quiz-api/internal/utils"
)

// LevelHandler exposes the stored test levels and their page keys.
type LevelHandler struct {
	service service.AnswerKeyService
	logger  zerolog.Logger
}

// NewLevelHandler constructs a level handler.
func NewLevelHandler(service service.AnswerKeyService, logger zerolog.Logger) *LevelHandler {
	return &LevelHandler{
		service: service,
		logger:  logger.With().Str("component", "level_handler").Logger(),
	}
}

// Register wires level routes.
func (h *LevelHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:level/key", h.key)
}

func (h *LevelHandler) list(c *fiber.Ctx) error {
	levels, err := h.service.Levels(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list levels")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list levels")
	}
	return utils.SendSuccess(c, "levels retrieved", levels)
}

func (h *LevelHandler) key(c *fiber.Ctx) error {
	level, err := url.PathUnescape(c.Params("level"))
	if err != nil || level == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid level")
	}

	key, err := h.service.PageKey(c.UserContext(), level)
	if err != nil {
		if errors.Is(err, service.ErrLevelNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "unknown level")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("level", level).Msg("failed to load page key")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load answer key")
	}
	return utils.SendSuccess(c, "answer key retrieved", key)
}
