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

// DashboardHandler serves the role-specific dashboard payloads.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler builds a dashboard handler instance.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group, each guarded
// by the role it serves.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/student", middleware.RequireRole(models.RoleStudent), h.student)
	router.Get("/teacher", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin), h.teacher)
	router.Get("/admin", middleware.RequireRole(models.RoleAdmin), h.admin)
}

func (h *DashboardHandler) student(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	dashboard, err := h.service.StudentDashboard(c.UserContext(), actor.ID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *DashboardHandler) teacher(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	classID, err := parseQueryUint(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if classID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "class_id is required")
	}

	dashboard, err := h.service.TeacherDashboard(c.UserContext(), *classID, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *DashboardHandler) admin(c *fiber.Ctx) error {
	dashboard, err := h.service.AdminDashboard(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *DashboardHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "class not found")
	case errors.Is(err, service.ErrTeacherNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "teacher not found")
	case errors.Is(err, service.ErrNotClassOwner):
		return utils.SendError(c, fiber.StatusForbidden, "class belongs to another teacher")
	case errors.Is(err, service.ErrNotRecordOwner):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
