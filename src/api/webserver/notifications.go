package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/collablink/collab-comms/src/api/engine"
)

type Notifications struct {
	eng *engine.Engine
}

func NewNotifications(eng *engine.Engine) Notifications {
	return Notifications{eng: eng}
}

func (h Notifications) List(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	page, err := h.eng.Notify.ListByUser(c.Request.Context(), callerIdentity(c).UserID, unreadOnly, pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": page.Items,
		"total":         page.Total,
		"unread":        page.Unread,
		"hasMore":       page.HasMore,
	})
}

func (h Notifications) MarkRead(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	n, err := h.eng.Notify.MarkRead(c.Request.Context(), callerIdentity(c).UserID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
