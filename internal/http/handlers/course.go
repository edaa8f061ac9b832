package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnhub-backend/internal/http/response"
	"github.com/yungbote/learnhub-backend/internal/services"
)

type CourseHandler struct {
	progress    services.ProgressService
	completion  services.CompletionService
	enrollments services.EnrollmentService
	badges      services.BadgeService
}

func NewCourseHandler(
	progress services.ProgressService,
	completion services.CompletionService,
	enrollments services.EnrollmentService,
	badges services.BadgeService,
) *CourseHandler {
	return &CourseHandler{progress: progress, completion: completion, enrollments: enrollments, badges: badges}
}

// GET /api/courses/:id/progress
func (h *CourseHandler) GetProgress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.progress.ComputeCourseProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !p.Computable {
		response.RespondError(c, http.StatusUnprocessableEntity, "not_computable", errors.New("course has no published lessons"))
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

// POST /api/courses/:id/completion
//
// 400 course_incomplete is the normal "not done yet" answer; write failures
// are 5xx.
func (h *CourseHandler) CheckCompletion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	out, err := h.completion.Evaluate(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if !out.Completed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    response.APIError{Message: "course not yet complete", Code: "course_incomplete"},
			"progress": out.Progress,
		})
		return
	}
	body := gin.H{
		"completed":      true,
		"newlyCompleted": out.NewlyCompleted,
		"badgeAwarded":   out.BadgeAwarded,
		"badgePending":   out.BadgeErr != nil,
		"progress":       out.Progress,
	}
	if out.Badge != nil {
		body["badge"] = out.Badge
	}
	response.RespondOK(c, body)
}

// POST /api/courses/:id/enroll
func (h *CourseHandler) Enroll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	row, created, err := h.enrollments.Enroll(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"enrollment": row})
}

// POST /api/courses/:id/stop
func (h *CourseHandler) Stop(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	row, err := h.enrollments.Stop(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": row})
}

// GET /api/enrollments
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rows, err := h.enrollments.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": rows})
}

// GET /api/courses/:id/badge
func (h *CourseHandler) GetBadge(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	badge, err := h.badges.GetCourseBadge(c.Request.Context(), courseID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	awarded, err := h.badges.CountAwarded(c.Request.Context(), badge.ID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"badge": badge, "awardedCount": awarded})
}
