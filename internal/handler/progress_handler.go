package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arka-edu/arka-api/internal/dto"
	"github.com/arka-edu/arka-api/internal/observability"
	"github.com/arka-edu/arka-api/internal/service"
	"github.com/arka-edu/arka-api/internal/utils"
)

// ProgressHandler manages the progress state-machine endpoints.
type ProgressHandler struct {
	service   service.ProgressService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProgressHandler builds a progress handler instance.
func NewProgressHandler(service service.ProgressService, validator *validator.Validate, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches the routes to the provided chapter-scoped group.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Get("/:id/progress", h.status)
	router.Post("/:id/progress/start", h.start)
	router.Post("/:id/progress/submit", h.submit)
	router.Post("/:id/progress/override", h.override)
}

func (h *ProgressHandler) start(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.Start(c.UserContext(), chapterID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	observability.ProgressTransitions().WithLabelValues("start").Inc()

	return utils.SendSuccess(c, "progress started", record)
}

func (h *ProgressHandler) submit(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitProgressRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.service.Submit(c.UserContext(), chapterID, actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	observability.ProgressTransitions().WithLabelValues("submit").Inc()

	return utils.SendSuccess(c, "quiz submitted", record)
}

func (h *ProgressHandler) override(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OverrideProgressRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.Override(c.UserContext(), chapterID, payload.StudentID, actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	observability.ProgressTransitions().WithLabelValues("override").Inc()

	return utils.SendSuccess(c, "progress graded", record)
}

func (h *ProgressHandler) status(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	studentID := actor.ID
	if target, err := parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	} else if target != nil {
		studentID = *target
	}

	record, err := h.service.Status(c.UserContext(), chapterID, studentID, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress retrieved", record)
}

func (h *ProgressHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrChapterNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "chapter not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrSequenceLocked):
		return utils.SendError(c, fiber.StatusForbidden, "must complete previous chapters first")
	case errors.Is(err, service.ErrNotRecordOwner), errors.Is(err, service.ErrNotChapterOwner):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrEmptyAnswers):
		return utils.SendError(c, fiber.StatusBadRequest, "answers must not be empty")
	case errors.Is(err, service.ErrNoQuiz):
		return utils.SendError(c, fiber.StatusBadRequest, "chapter has no quiz questions")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrChapterOrphaned):
		h.logger.Error().Err(err).Msg("chapter ordering integrity violation")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
