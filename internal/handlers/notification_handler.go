package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/gin-gonic/gin"
)

// NotificationHandler serves a member's notification history
type NotificationHandler struct {
	notificationRepo repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepo: notificationRepo,
	}
}

// GetMyNotifications handles GET /me/notifications
func (h *NotificationHandler) GetMyNotifications(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	if cl.MemberID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "only members have notifications"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	notifications, err := h.notificationRepo.FindByMemberID(c.Request.Context(), cl.MemberID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}
