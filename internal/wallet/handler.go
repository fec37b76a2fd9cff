package wallet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/middleware"
	"github.com/ecopool/carpool/pkg/models"
)

// Handler handles HTTP requests for the wallet ledger
type Handler struct {
	service *Service
}

// NewHandler creates a new wallet handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the wallet endpoints onto an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	wallet := rg.Group("/wallet")
	{
		wallet.GET("", h.GetWallet)
		wallet.POST("/topup", h.TopUp)
		wallet.POST("/withdraw", h.Withdraw)
		wallet.GET("/transactions", h.ListTransactions)
	}

	payments := rg.Group("/payments")
	{
		payments.POST("", h.PayForRide)
		payments.POST("/:id/complete", h.CompletePayment)
		payments.POST("/refunds", h.RequestRefund)
		payments.POST("/refunds/:id/complete", h.CompleteRefund)
	}
}

// GetWallet returns the caller's wallet
func (h *Handler) GetWallet(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get wallet")
		return
	}

	common.SuccessResponse(c, wallet)
}

// TopUp credits the caller's wallet
func (h *Handler) TopUp(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txn, wallet, err := h.service.TopUp(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to top up wallet")
		return
	}

	common.CreatedResponse(c, gin.H{"transaction": txn, "wallet": wallet})
}

// Withdraw debits the caller's wallet
func (h *Handler) Withdraw(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txn, wallet, err := h.service.Withdraw(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to withdraw")
		return
	}

	common.CreatedResponse(c, gin.H{"transaction": txn, "wallet": wallet})
}

// PayForRide settles the caller's fare for a ride
func (h *Handler) PayForRide(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.RidePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := h.service.PayForRide(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to pay for ride")
		return
	}

	common.CreatedResponse(c, txn)
}

// CompletePayment confirms an externally-settled ride payment
func (h *Handler) CompletePayment(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	txnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	txn, err := h.service.CompletePayment(c.Request.Context(), userID, txnID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to complete payment")
		return
	}

	common.SuccessResponse(c, txn)
}

// RequestRefund opens a refund for a paid fare
func (h *Handler) RequestRefund(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := h.service.RequestRefund(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to request refund")
		return
	}

	common.CreatedResponse(c, txn)
}

// CompleteRefund settles a pending refund
func (h *Handler) CompleteRefund(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	txnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction ID")
		return
	}

	txn, err := h.service.CompleteRefund(c.Request.Context(), userID, txnID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to complete refund")
		return
	}

	common.SuccessResponse(c, txn)
}

// ListTransactions returns the caller's ledger history
func (h *Handler) ListTransactions(c *gin.Context) {
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

	txns, total, err := h.service.ListTransactions(c.Request.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list transactions")
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	common.SuccessResponseWithMeta(c, txns, &common.Meta{
		Page: page, PerPage: perPage, Total: total, TotalPages: totalPages,
	})
}
