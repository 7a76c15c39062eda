package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arka-edu/arka-api/internal/middleware"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/service"
	"github.com/arka-edu/arka-api/internal/utils"
)

// RosterHandler exposes the deletion cascades for students and chapters.
type RosterHandler struct {
	service service.RosterService
	logger  zerolog.Logger
}

// NewRosterHandler builds a roster handler instance.
func NewRosterHandler(service service.RosterService, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		service: service,
		logger:  logger.With().Str("component", "roster_handler").Logger(),
	}
}

// RegisterStudentRoutes attaches student removal to the student group.
func (h *RosterHandler) RegisterStudentRoutes(router fiber.Router) {
	router.Delete("/:id", h.removeStudent)
}

// RegisterChapterRoutes attaches chapter removal to the chapter group.
func (h *RosterHandler) RegisterChapterRoutes(router fiber.Router) {
	router.Delete("/:id", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin), h.removeChapter)
}

func (h *RosterHandler) removeStudent(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RemoveStudent(c.UserContext(), studentID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "student removed", nil)
}

func (h *RosterHandler) removeChapter(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RemoveChapter(c.UserContext(), chapterID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chapter removed", nil)
}

func (h *RosterHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrChapterNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "chapter not found")
	case errors.Is(err, service.ErrNotRecordOwner), errors.Is(err, service.ErrNotChapterOwner):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
