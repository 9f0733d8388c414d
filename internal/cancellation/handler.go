package cancellation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"makerspace/internal/api"
	"makerspace/internal/auth"
	"makerspace/internal/booking"
)

type Handler struct {
	service    Service
	dispatcher booking.EventDispatcher
}

func NewHandler(service Service, dispatcher booking.EventDispatcher) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

// CreateCancellation godoc
// @Summary      Cancel booked slots
// @Description  Cancels bookings, frees their slots and records a prorated refund.
// @Description  Rows sharing a payment reference keep the totals of the first cancellation.
// @Tags         cancellations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Param        request body cancellation.CancelRequest true "Bookings and purchase totals"
// @Success      201 {object} cancellation.Result
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /equipment/{equipmentID}/cancellations [post]
func (h *Handler) CreateCancellation(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}
	req.EquipmentID = equipmentID

	res, err := h.service.CreateEquipmentCancellation(c.Request.Context(), booking.RequesterFrom(id), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	h.dispatcher.DispatchAsync(res.Events)
	c.JSON(http.StatusCreated, res)
}

// ListCancellations godoc
// @Summary      List refund ledger rows
// @Tags         admin,cancellations
// @Produce      json
// @Security     BearerAuth
// @Param        resolved query bool false "Filter by resolved flag"
// @Success      200 {array} cancellation.CancellationWithDetails
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/cancellations [get]
func (h *Handler) ListCancellations(c *gin.Context) {
	raw, filtered := c.GetQuery("resolved")
	if !filtered {
		list, err := h.service.GetAllEquipmentCancellations(c.Request.Context())
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}

	resolved, err := strconv.ParseBool(raw)
	if err != nil {
		api.RespondBadRequest(c, "resolved must be true or false")
		return
	}
	list, err := h.service.GetEquipmentCancellationsByStatus(c.Request.Context(), resolved)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateResolved godoc
// @Summary      Mark a refund as issued
// @Tags         admin,cancellations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Cancellation ID"
// @Param        request body cancellation.UpdateResolvedRequest true "Resolved flag"
// @Success      200 {object} cancellation.Cancellation
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/cancellations/{id}/resolved [patch]
func (h *Handler) UpdateResolved(c *gin.Context) {
	id, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateResolvedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	updated, err := h.service.UpdateEquipmentCancellationResolved(c.Request.Context(), id, *req.Resolved)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
