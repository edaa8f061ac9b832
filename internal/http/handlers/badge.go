package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnhub-backend/internal/http/response"
	"github.com/yungbote/learnhub-backend/internal/services"
)

type BadgeHandler struct {
	badges services.BadgeService
}

func NewBadgeHandler(badges services.BadgeService) *BadgeHandler {
	return &BadgeHandler{badges: badges}
}

// GET /api/badges/me
func (h *BadgeHandler) ListMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rows, err := h.badges.ListUserBadges(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"badges": rows})
}
