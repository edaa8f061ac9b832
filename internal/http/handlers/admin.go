package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnhub-backend/internal/http/response"
	"github.com/yungbote/learnhub-backend/internal/jobs/reconcile"
	"github.com/yungbote/learnhub-backend/internal/services"
)

// ReconcileRunner runs one locked sweep; *reconcile.Scheduler implements it.
type ReconcileRunner interface {
	RunOnce(ctx context.Context, opts services.SweepOptions) (*services.SweepReport, error)
}

type AdminHandler struct {
	courses   services.CourseAdminService
	badges    services.BadgeService
	reconcile ReconcileRunner
}

func NewAdminHandler(courses services.CourseAdminService, badges services.BadgeService, runner ReconcileRunner) *AdminHandler {
	return &AdminHandler{courses: courses, badges: badges, reconcile: runner}
}

// POST /api/admin/courses
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var in services.CreateCourseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	course, err := h.courses.CreateCourse(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": course})
}

// POST /api/admin/courses/:id/lessons
func (h *AdminHandler) CreateLesson(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in services.CreateLessonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	lesson, err := h.courses.CreateLesson(c.Request.Context(), courseID, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lesson": lesson})
}

type patchLessonRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// PATCH /api/admin/lessons/:id
func (h *AdminHandler) PatchLesson(c *gin.Context) {
	lessonID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req patchLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	lesson, err := h.courses.SetLessonPublished(c.Request.Context(), lessonID, *req.Published)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// PUT /api/admin/courses/:id/badge
func (h *AdminHandler) UpsertCourseBadge(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in services.UpsertCourseBadgeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	badge, err := h.badges.UpsertCourseBadge(c.Request.Context(), courseID, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"badge": badge})
}

type reconcileRequest struct {
	UserID string `json:"userId" binding:"omitempty,uuid"`
	DryRun bool   `json:"dryRun"`
}

// POST /api/admin/badges/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	if h.reconcile == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "reconcile_unavailable", errors.New("reconciliation is not configured"))
		return
	}
	var req reconcileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	opts := services.SweepOptions{DryRun: req.DryRun}
	if req.UserID != "" {
		uid := uuid.MustParse(req.UserID)
		opts.UserID = &uid
	}
	report, err := h.reconcile.RunOnce(c.Request.Context(), opts)
	if err != nil {
		if errors.Is(err, reconcile.ErrSkipped) {
			response.RespondError(c, http.StatusConflict, "sweep_running", err)
			return
		}
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}
