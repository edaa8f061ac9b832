package handlers

import (
	"math"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnhub-backend/internal/http/response"
	"github.com/yungbote/learnhub-backend/internal/services"
)

type LessonProgressHandler struct {
	svc services.LessonProgressService
}

func NewLessonProgressHandler(svc services.LessonProgressService) *LessonProgressHandler {
	return &LessonProgressHandler{svc: svc}
}

type updateLessonProgressRequest struct {
	LessonID  string   `json:"lessonId" binding:"required,uuid"`
	CourseID  string   `json:"courseId" binding:"required,uuid"`
	// Progress is a percent; fractions are rounded half away from zero.
	Progress  *float64 `json:"progress" binding:"required"`
	Completed bool     `json:"completed"`
	TimeSpent int64    `json:"timeSpent"`
	Notes     *string  `json:"notes"`
}

type updateLessonProgressResponse struct {
	Success         bool `json:"success"`
	Completed       bool `json:"completed"`
	Progress        int  `json:"progress"`
	BadgeAwarded    bool `json:"badgeAwarded"`
	BadgePending    bool `json:"badgePending"`
	CourseCompleted bool `json:"courseCompleted"`
}

// POST /api/lesson-progress/update
func (h *LessonProgressHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateLessonProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.svc.UpdateLessonProgress(c.Request.Context(), services.UpdateLessonProgressInput{
		UserID:           userID,
		LessonID:         uuid.MustParse(req.LessonID),
		CourseID:         uuid.MustParse(req.CourseID),
		Progress:         int(math.Round(*req.Progress)),
		Completed:        req.Completed,
		TimeSpentSeconds: req.TimeSpent,
		Notes:            req.Notes,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := updateLessonProgressResponse{
		Success:   true,
		Completed: res.LessonProgress.Completed,
		Progress:  res.LessonProgress.ProgressPercent,
	}
	if res.Completion != nil {
		out.CourseCompleted = res.Completion.Completed
		out.BadgeAwarded = res.Completion.BadgeAwarded
		out.BadgePending = res.Completion.BadgeErr != nil
	}
	response.RespondOK(c, out)
}
