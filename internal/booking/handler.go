package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"makerspace/internal/api"
	"makerspace/internal/auth"
	"makerspace/internal/events"
)

// EventDispatcher delivers post-commit events without blocking the request.
type EventDispatcher interface {
	DispatchAsync(evts []events.Event)
}

type Handler struct {
	service    Service
	dispatcher EventDispatcher
}

func NewHandler(service Service, dispatcher EventDispatcher) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

func RequesterFrom(id auth.Identity) Requester {
	return Requester{UserID: id.UserID, TrustLevel: id.TrustLevel, IsAdmin: id.IsAdmin()}
}

// BookEquipment godoc
// @Summary      Book one equipment slot
// @Description  Reserves a single slot. Fails with 409 if the slot was taken first.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Param        request body booking.BookRequest true "Slot window"
// @Success      201 {object} booking.Result
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /equipment/{equipmentID}/book [post]
func (h *Handler) BookEquipment(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}
	req.EquipmentID = equipmentID

	res, err := h.service.BookEquipment(c.Request.Context(), RequesterFrom(id), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	h.dispatcher.DispatchAsync(res.Events)
	c.JSON(http.StatusCreated, res)
}

// BookEquipmentBulk godoc
// @Summary      Book several slots at once
// @Description  All-or-nothing: either every requested slot is booked or none is.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Param        request body booking.BulkBookRequest true "Slot windows"
// @Success      201 {object} booking.Result
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /equipment/{equipmentID}/book-bulk [post]
func (h *Handler) BookEquipmentBulk(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	var req BulkBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}
	req.EquipmentID = equipmentID

	res, err := h.service.BookEquipmentBulkByTimes(c.Request.Context(), RequesterFrom(id), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	h.dispatcher.DispatchAsync(res.Events)
	c.JSON(http.StatusCreated, res)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} booking.BookingWithDetails
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}

	list, err := h.service.GetUserBookings(c.Request.Context(), id.UserID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetBooking godoc
// @Summary      Get a booking
// @Description  Members see their own bookings; admins see any
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        bookingID path int true "Booking ID"
// @Success      200 {object} booking.Booking
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	bookingID, ok := api.ParseIDParam(c, "bookingID")
	if !ok {
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), RequesterFrom(id), bookingID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListEquipmentBookings godoc
// @Summary      List bookings for equipment
// @Tags         admin,bookings
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Success      200 {array} booking.BookingWithDetails
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/equipment/{equipmentID}/bookings [get]
func (h *Handler) ListEquipmentBookings(c *gin.Context) {
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	list, err := h.service.GetBookingsByEquipment(c.Request.Context(), equipmentID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// BookingStats godoc
// @Summary      Booking statistics
// @Description  Counts by status grouped by slot day or by equipment. Dates are RFC3339 or YYYY-MM-DD.
// @Tags         admin,analytics
// @Produce      json
// @Security     BearerAuth
// @Param        group_by query string false "day or equipment" default(day)
// @Param        from query string false "Range start"
// @Param        to query string false "Range end (exclusive)"
// @Success      200 {array} booking.BookingStat
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/analytics/bookings [get]
func (h *Handler) BookingStats(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		api.RespondBadRequest(c, "invalid from")
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		api.RespondBadRequest(c, "invalid to")
		return
	}

	stats, err := h.service.GetBookingStats(c.Request.Context(), StatsGroupBy(c.DefaultQuery("group_by", string(GroupByDay))), from, to)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseDateParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
