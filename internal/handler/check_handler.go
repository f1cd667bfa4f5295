package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
	"github.com/noah-isme/lanex-quiz-api/internal/service"
	"github.com/noah-isme/lanex-quiz-api/internal/utils"
)

// CheckHandler serves the grading endpoint used by test pages.
type CheckHandler struct {
	service service.CheckService
	logger  zerolog.Logger
}

// NewCheckHandler constructs a check handler.
func NewCheckHandler(service service.CheckService, logger zerolog.Logger) *CheckHandler {
	return &CheckHandler{
		service: service,
		logger:  logger.With().Str("component", "check_handler").Logger(),
	}
}

// Register wires the grading route. Extra handlers run before it.
func (h *CheckHandler) Register(router fiber.Router, handlers ...fiber.Handler) {
	router.Post("/check_test", append(handlers, h.check)...)
}

func (h *CheckHandler) check(c *fiber.Ctx) error {
	var payload quiz.Payload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Check(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	// The response body is the bare grading contract, not the API envelope.
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *CheckHandler) handleError(c *fiber.Ctx, err error) error {
	logger := requestLogger(h.logger, c)
	switch {
	case isValidationError(err):
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrLevelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "unknown level")
	case errors.Is(err, service.ErrCheckInProgress):
		return utils.SendError(c, fiber.StatusConflict, "a check is already in progress")
	default:
		logger.Error().Err(err).Msg("failed to check test")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to check test")
	}
}
