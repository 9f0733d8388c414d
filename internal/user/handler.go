package user

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

// MeResponse is the stored profile plus the trust level carried by the token.
type MeResponse struct {
	User
	TrustLevel int `json:"trust_level"`
}

// GetMe godoc
// @Summary      Current user
// @Description  Returns the caller's profile and the trust level used for schedule checks.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} user.MeResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}

	u, err := h.service.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: *u, TrustLevel: id.TrustLevel})
}
