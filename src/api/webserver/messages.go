package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/collablink/collab-comms/src/api/engine"
)

type Messages struct {
	eng *engine.Engine
}

func NewMessages(eng *engine.Engine) Messages {
	return Messages{eng: eng}
}

func (h Messages) Create(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Content        string `json:"content" binding:"required"`
		AttachmentURL  string `json:"attachmentUrl"`
		AttachmentName string `json:"attachmentName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	msg, events, err := h.eng.Threads.PostMessage(c.Request.Context(), callerIdentity(c).UserID, id,
		req.Content, req.AttachmentURL, req.AttachmentName)
	if err != nil {
		fail(c, err)
		return
	}
	h.eng.Notify.EmitAll(c.Request.Context(), events)
	c.JSON(http.StatusCreated, msg)
}

func (h Messages) List(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	markAsRead, _ := strconv.ParseBool(c.DefaultQuery("markAsRead", "false"))

	page, err := h.eng.Threads.ListMessages(c.Request.Context(), callerIdentity(c).UserID, id, pageFrom(c), markAsRead)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": page.Messages,
		"total":    page.Total,
		"hasMore":  page.HasMore,
	})
}

func (h Messages) UnreadCount(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	caller := callerIdentity(c)
	// Resolve the proposal first so outsiders get 403, not a zero count.
	if _, err := h.eng.Proposals.Get(c.Request.Context(), caller.UserID, id); err != nil {
		fail(c, err)
		return
	}
	n, err := h.eng.Threads.UnreadCount(c.Request.Context(), caller.UserID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}
