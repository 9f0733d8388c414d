package schedule

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"makerspace/internal/api"
	"makerspace/internal/settings"
)

type SettingsLister interface {
	List(ctx context.Context) ([]settings.Setting, error)
}

type Handler struct {
	policy *Policy
	lister SettingsLister
}

func NewHandler(policy *Policy, lister SettingsLister) *Handler {
	return &Handler{policy: policy, lister: lister}
}

type SettingsView struct {
	Level3Schedule         WeeklySchedule     `json:"level3_schedule"`
	Level4UnavailableHours HourRange          `json:"level4_unavailable_hours"`
	Raw                    []settings.Setting `json:"raw"`
}

// @Summary      Get booking settings
// @Description  Admin-only: effective schedule restrictions plus the raw stored settings
// @Tags         admin,settings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} schedule.SettingsView
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/settings [get]
func (h *Handler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := h.lister.List(ctx)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SettingsView{
		Level3Schedule:         h.policy.Level3ScheduleRestrictions(ctx),
		Level4UnavailableHours: h.policy.Level4UnavailableHours(ctx),
		Raw:                    raw,
	})
}

// @Summary      Update level 3 schedule
// @Description  Admin-only: weekday name to bookable hours for users below level 4
// @Tags         admin,settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.WeeklySchedule true "Weekly schedule"
// @Success      200 {object} schedule.WeeklySchedule
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/settings/level3-schedule [put]
func (h *Handler) UpdateLevel3Schedule(c *gin.Context) {
	var req WeeklySchedule
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	if err := h.policy.UpdateLevel3Schedule(c.Request.Context(), req); err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// @Summary      Update level 4 unavailable hours
// @Description  Admin-only: blackout window applied to level 4 users; start after end wraps midnight
// @Tags         admin,settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.HourRange true "Blackout hours"
// @Success      200 {object} schedule.HourRange
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /admin/settings/level4-unavailable-hours [put]
func (h *Handler) UpdateLevel4UnavailableHours(c *gin.Context) {
	var req HourRange
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	if err := h.policy.UpdateLevel4UnavailableHours(c.Request.Context(), req); err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}
