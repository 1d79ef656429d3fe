package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collablink/collab-comms/src/api/types"
)

// fail maps the engine's error taxonomy onto HTTP status codes with the
// field-or-reason-tagged payload the frontend keys its messages on.
func fail(c *gin.Context, err error) {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"err": ve.Reason, "field": ve.Field})
		return
	}
	switch {
	case errors.Is(err, types.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	case errors.Is(err, types.ErrAuthorization):
		c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
	case errors.Is(err, types.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error(), "reason": "state"})
	case errors.Is(err, types.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error(), "reason": "conflict"})
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
	}
}
