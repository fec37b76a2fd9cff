package ratings

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/middleware"
)

// Handler handles HTTP requests for ratings
type Handler struct {
	service *Service
}

// NewHandler creates a new ratings handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the rating endpoints onto an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	reviews := rg.Group("/reviews")
	{
		reviews.POST("", h.SubmitReview)
		reviews.GET("/given", h.ListReviewsGiven)
		reviews.GET("/received", h.ListReviewsReceived)
	}

	ratings := rg.Group("/ratings")
	{
		ratings.GET("/me", h.GetMyProfile)
		ratings.GET("/:id", h.GetUserProfile)
	}
}

// SubmitReview records a rating for a completed ride
func (h *Handler) SubmitReview(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	review, err := h.service.SubmitReview(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to submit review")
		return
	}

	common.CreatedResponse(c, review)
}

// GetMyProfile returns the caller's rating profile
func (h *Handler) GetMyProfile(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.service.GetMyProfile(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get rating profile")
		return
	}

	common.SuccessResponse(c, profile)
}

// GetUserProfile returns another user's public rating profile
func (h *Handler) GetUserProfile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	profile, err := h.service.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get rating profile")
		return
	}

	common.SuccessResponse(c, profile)
}

// ListReviewsGiven returns reviews the caller has written
func (h *Handler) ListReviewsGiven(c *gin.Context) {
	h.listReviews(c, h.service.ListReviewsGiven)
}

// ListReviewsReceived returns reviews written about the caller
func (h *Handler) ListReviewsReceived(c *gin.Context) {
	h.listReviews(c, h.service.ListReviewsReceived)
}

func (h *Handler) listReviews(c *gin.Context, list func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error)) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	reviews, total, err := list(c.Request.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list reviews")
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	common.SuccessResponseWithMeta(c, reviews, &common.Meta{
		Page: page, PerPage: perPage, Total: total, TotalPages: totalPages,
	})
}
