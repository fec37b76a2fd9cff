package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/middleware"
)

// Handler handles HTTP requests for notifications
type Handler struct {
	service *Service
}

// NewHandler creates a new notifications handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the notification endpoints onto an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/:id/read", h.MarkAsRead)
		notifications.POST("/read-all", h.MarkAllAsRead)
	}
}

// List returns the caller's notifications
func (h *Handler) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	unreadOnly := c.Query("unread") == "true"

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	notifications, total, err := h.service.List(c.Request.Context(), userID, unreadOnly, perPage, (page-1)*perPage)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list notifications")
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	common.SuccessResponseWithMeta(c, notifications, &common.Meta{
		Page: page, PerPage: perPage, Total: total, TotalPages: totalPages,
	})
}

// UnreadCount returns how many notifications are unread
func (h *Handler) UnreadCount(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get unread count")
		return
	}

	common.SuccessResponse(c, gin.H{"unread_count": count})
}

// MarkAsRead marks one notification as read
func (h *Handler) MarkAsRead(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), userID, notificationID); err != nil {
		common.HandleServiceError(c, err, "failed to mark notification as read")
		return
	}

	common.SuccessResponse(c, gin.H{"read": true})
}

// MarkAllAsRead marks every unread notification as read
func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	updated, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to mark notifications as read")
		return
	}

	common.SuccessResponse(c, gin.H{"marked_read": updated})
}
