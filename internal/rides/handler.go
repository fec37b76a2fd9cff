package rides

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/middleware"
	"github.com/ecopool/carpool/pkg/models"
)

// Handler handles HTTP requests for rides
type Handler struct {
	service *Service
}

// NewHandler creates a new rides handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the ride endpoints onto an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rides := rg.Group("/rides")
	{
		rides.POST("", h.CreateRide)
		rides.GET("", h.ListUpcomingRides)
		rides.GET("/mine", h.ListMyRides)
		rides.GET("/:id", h.GetRide)
		rides.PATCH("/:id", h.UpdateRide)
		rides.DELETE("/:id", h.DeleteRide)
		rides.POST("/:id/requests", h.RequestToJoin)
		rides.POST("/:id/respond", h.RespondToRequest)
		rides.DELETE("/:id/requests", h.CancelOwnRequest)
		rides.POST("/:id/start", h.StartRide)
		rides.PUT("/:id/location", h.UpdateLocation)
		rides.GET("/:id/location", h.GetLiveLocation)
		rides.POST("/:id/complete", h.CompleteRide)
		rides.POST("/:id/cancel", h.CancelRide)
	}
}

// CreateRide handles publishing a new ride
func (h *Handler) CreateRide(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.service.CreateRide(c.Request.Context(), driverID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to create ride")
		return
	}

	common.CreatedResponse(c, ride)
}

// GetRide handles getting a ride by ID
func (h *Handler) GetRide(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	ride, err := h.service.GetRide(c.Request.Context(), rideID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// ListUpcomingRides lists joinable scheduled rides
func (h *Handler) ListUpcomingRides(c *gin.Context) {
	limit, offset, page := pagination(c)

	rides, total, err := h.service.ListUpcomingRides(c.Request.Context(), limit, offset)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list rides")
		return
	}

	common.SuccessResponseWithMeta(c, rides, paginationMeta(page, limit, total))
}

// ListMyRides lists the caller's rides; role=driver (default) or passenger
func (h *Handler) ListMyRides(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset, page := pagination(c)

	var rides []*models.Ride
	var total int64
	if c.DefaultQuery("role", "driver") == "passenger" {
		rides, total, err = h.service.ListMyRidesAsPassenger(c.Request.Context(), userID, limit, offset)
	} else {
		rides, total, err = h.service.ListMyRidesAsDriver(c.Request.Context(), userID, limit, offset)
	}
	if err != nil {
		common.HandleServiceError(c, err, "failed to list rides")
		return
	}

	common.SuccessResponseWithMeta(c, rides, paginationMeta(page, limit, total))
}

// RequestToJoin handles a passenger's seat request
func (h *Handler) RequestToJoin(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	var req models.JoinRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.service.RequestToJoin(c.Request.Context(), rideID, userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to request seat")
		return
	}

	common.CreatedResponse(c, ride)
}

// RespondToRequest handles the driver accepting or rejecting a request
func (h *Handler) RespondToRequest(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	var req models.RespondToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.service.RespondToRequest(c.Request.Context(), rideID, driverID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to respond to request")
		return
	}

	common.SuccessResponse(c, ride)
}

// CancelOwnRequest handles a passenger withdrawing their seat request
func (h *Handler) CancelOwnRequest(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	ride, err := h.service.CancelOwnRequest(c.Request.Context(), rideID, userID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to cancel request")
		return
	}

	common.SuccessResponse(c, ride)
}

// StartRide handles the driver starting a ride
func (h *Handler) StartRide(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	ride, err := h.service.StartRide(c.Request.Context(), rideID, driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to start ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// UpdateLocation handles a live position report from the driver
func (h *Handler) UpdateLocation(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	var req models.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.service.UpdateLocation(c.Request.Context(), rideID, driverID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to update location")
		return
	}

	common.SuccessResponse(c, ride.CurrentLocation)
}

// GetLiveLocation returns the latest reported position of a ride
func (h *Handler) GetLiveLocation(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	point, err := h.service.GetLiveLocation(c.Request.Context(), rideID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get live location")
		return
	}

	common.SuccessResponse(c, point)
}

// CompleteRide handles the driver completing a ride
func (h *Handler) CompleteRide(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	ride, err := h.service.CompleteRide(c.Request.Context(), rideID, driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to complete ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// CancelRide handles ride cancellation by the driver or a passenger
func (h *Handler) CancelRide(c *gin.Context) {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	var req models.CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.service.CancelRide(c.Request.Context(), rideID, actorID, req.Reason)
	if err != nil {
		common.HandleServiceError(c, err, "failed to cancel ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// UpdateRide handles pre-departure edits to a ride
func (h *Handler) UpdateRide(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	var req models.UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.service.UpdateRide(c.Request.Context(), rideID, driverID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to update ride")
		return
	}

	common.SuccessResponse(c, ride)
}

// DeleteRide handles removing a ride that never ran
func (h *Handler) DeleteRide(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	rideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ride ID")
		return
	}

	if err := h.service.DeleteRide(c.Request.Context(), rideID, driverID); err != nil {
		common.HandleServiceError(c, err, "failed to delete ride")
		return
	}

	common.SuccessResponse(c, gin.H{"deleted": true})
}

func pagination(c *gin.Context) (limit, offset, page int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return limit, (page - 1) * limit, page
}

func paginationMeta(page, perPage int, total int64) *common.Meta {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &common.Meta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}
