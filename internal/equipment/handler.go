package equipment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"makerspace/internal/api"
	"makerspace/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      List bookable equipment
// @Tags         equipment
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} equipment.Equipment
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /equipment [get]
func (h *Handler) ListEquipment(c *gin.Context) {
	list, err := h.service.ListEquipment(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Equipment detail
// @Description  Equipment plus the caller's upcoming reservations; works for disabled equipment
// @Tags         equipment
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Success      200 {object} equipment.EquipmentDetail
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /equipment/{equipmentID} [get]
func (h *Handler) GetEquipmentDetail(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	detail, err := h.service.GetEquipmentDetail(c.Request.Context(), equipmentID, id.UserID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// @Summary      Equipment with slots and bookings
// @Description  Admin-only: every slot annotated with its active booking or workshop occurrence
// @Tags         admin,equipment
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} equipment.EquipmentWithSlots
// @Failure      403 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/equipment [get]
func (h *Handler) GetAllEquipmentWithBookings(c *gin.Context) {
	list, err := h.service.GetAllEquipmentWithBookings(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Create equipment
// @Tags         admin,equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body equipment.CreateEquipmentRequest true "Equipment payload"
// @Success      201 {object} equipment.Equipment
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/equipment [post]
func (h *Handler) CreateEquipment(c *gin.Context) {
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	e, err := h.service.CreateEquipment(c.Request.Context(), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// @Summary      Update equipment
// @Tags         admin,equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Param        request body equipment.UpdateEquipmentRequest true "Fields to change"
// @Success      200 {object} equipment.Equipment
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/equipment/{equipmentID} [put]
func (h *Handler) UpdateEquipment(c *gin.Context) {
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	e, err := h.service.UpdateEquipment(c.Request.Context(), equipmentID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// @Summary      Duplicate equipment
// @Description  Copies the equipment record as "<name> (Copy)"; slots are not copied
// @Tags         admin,equipment
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Success      201 {object} equipment.Equipment
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/equipment/{equipmentID}/duplicate [post]
func (h *Handler) DuplicateEquipment(c *gin.Context) {
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	e, err := h.service.DuplicateEquipment(c.Request.Context(), equipmentID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// @Summary      Delete equipment
// @Description  Soft delete; refused while upcoming bookings exist
// @Tags         admin,equipment
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/equipment/{equipmentID} [delete]
func (h *Handler) DeleteEquipment(c *gin.Context) {
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	if err := h.service.DeleteEquipment(c.Request.Context(), equipmentID); err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Equipment deleted"})
}

// @Summary      Toggle equipment availability
// @Description  Gates new bookings only; existing bookings stay valid
// @Tags         admin,equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Param        request body equipment.ToggleAvailabilityRequest true "New availability"
// @Success      200 {object} equipment.Equipment
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/equipment/{equipmentID}/availability [patch]
func (h *Handler) ToggleAvailability(c *gin.Context) {
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	var req ToggleAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	e, err := h.service.ToggleEquipmentAvailability(c.Request.Context(), equipmentID, *req.Availability)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// @Summary      Reserve slots for a workshop
// @Tags         admin,equipment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        equipmentID path int true "Equipment ID"
// @Param        request body equipment.ReserveWorkshopSlotsRequest true "Occurrence and windows"
// @Success      200 {array} equipment.Slot
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/equipment/{equipmentID}/workshop-slots [post]
func (h *Handler) ReserveWorkshopSlots(c *gin.Context) {
	equipmentID, ok := api.ParseIDParam(c, "equipmentID")
	if !ok {
		return
	}

	var req ReserveWorkshopSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	slots, err := h.service.ReserveWorkshopSlots(c.Request.Context(), equipmentID, req.OccurrenceID, req.Slots)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
