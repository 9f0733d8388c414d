package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"makerspace/internal/apperr"
	"makerspace/internal/logger"
)

const CodeInvalidRequest = "invalid_request"

func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as {"error","code"} with the status of its kind.
// Internal errors are logged and rendered without detail.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.WithError(err).Errorw("Request failed", "method", c.Request.Method, "path", c.FullPath())
	}
	c.AbortWithStatusJSON(StatusOf(kind), ErrorResponse{
		Error: apperr.MessageOf(err),
		Code:  string(kind),
	})
}

// RespondBadRequest is used for bodies and params that fail binding.
func RespondBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeInvalidRequest})
}

// ParseIDParam reads a positive integer path parameter, writing 400 when
// it is malformed.
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
