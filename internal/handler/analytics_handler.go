package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arka-edu/arka-api/internal/middleware"
	"github.com/arka-edu/arka-api/internal/models"
	"github.com/arka-edu/arka-api/internal/observability"
	"github.com/arka-edu/arka-api/internal/service"
	"github.com/arka-edu/arka-api/internal/utils"
)

// AnalyticsHandler exposes the derived-metric endpoints.
type AnalyticsHandler struct {
	analytics service.AnalyticsService
	reminders service.ReminderService
	logger    zerolog.Logger
}

// NewAnalyticsHandler builds an analytics handler instance.
func NewAnalyticsHandler(analytics service.AnalyticsService, reminders service.ReminderService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		reminders: reminders,
		logger:    logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// RegisterChapterRoutes attaches per-chapter analytics to the chapter group.
// Derived metrics expose other students' results, so they are staff-only.
func (h *AnalyticsHandler) RegisterChapterRoutes(router fiber.Router) {
	staff := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	router.Get("/:id/stats", staff, h.completionStats)
	router.Get("/:id/top-performers", staff, h.topPerformers)
}

// RegisterClassRoutes attaches class-scoped analytics to the class group.
// Teachers reach only their home class; the unscoped rollup is admin-only.
func (h *AnalyticsHandler) RegisterClassRoutes(router fiber.Router) {
	router.Get("/coverage", middleware.RequireRole(models.RoleAdmin), h.coverageAll)
	router.Get("/:id/coverage", h.coverage)
	router.Get("/:id/struggling", h.struggling)
	router.Post("/:id/struggling/remind", h.remind)
}

// RegisterGradingRoutes attaches the teacher grading queue.
func (h *AnalyticsHandler) RegisterGradingRoutes(router fiber.Router) {
	router.Get("/pending", h.pendingGradings)
}

func (h *AnalyticsHandler) completionStats(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.analytics.CompletionStats(c.UserContext(), chapterID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "completion stats computed", stats)
}

func (h *AnalyticsHandler) topPerformers(c *fiber.Ctx) error {
	chapterID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	performers, err := h.analytics.TopPerformers(c.UserContext(), chapterID, limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "top performers computed", performers)
}

func (h *AnalyticsHandler) coverageAll(c *fiber.Ctx) error {
	coverage, err := h.analytics.SyllabusCoverage(c.UserContext(), nil)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "syllabus coverage computed", coverage)
}

func (h *AnalyticsHandler) coverage(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.analytics.AuthorizeClass(c.UserContext(), classID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	coverage, err := h.analytics.SyllabusCoverage(c.UserContext(), &classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "syllabus coverage computed", coverage)
}

func (h *AnalyticsHandler) struggling(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.analytics.AuthorizeClass(c.UserContext(), classID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	flagged, err := h.analytics.StrugglingStudents(c.UserContext(), classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "struggling students computed", flagged)
}

func (h *AnalyticsHandler) remind(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	dispatched, err := h.reminders.RemindStruggling(c.UserContext(), classID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	observability.ReminderEvents().Add(float64(dispatched))

	return utils.SendSuccess(c, "reminders dispatched", fiber.Map{"dispatched": dispatched})
}

func (h *AnalyticsHandler) pendingGradings(c *fiber.Ctx) error {
	classID, err := parseQueryUint(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	gradings, err := h.analytics.PendingGradings(c.UserContext(), actor.ID, classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending gradings retrieved", gradings)
}

func (h *AnalyticsHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrChapterNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "chapter not found")
	case errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "class not found")
	case errors.Is(err, service.ErrTeacherNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "teacher not found")
	case errors.Is(err, service.ErrNotRecordOwner):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrNotClassOwner):
		return utils.SendError(c, fiber.StatusForbidden, "class belongs to another teacher")
	case errors.Is(err, service.ErrChapterOrphaned):
		h.logger.Error().Err(err).Msg("chapter ordering integrity violation")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
