package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/collablink/collab-comms/src/api/engine"
	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/types"
)

type Proposals struct {
	eng *engine.Engine
}

func NewProposals(eng *engine.Engine) Proposals {
	return Proposals{eng: eng}
}

func paramID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad id"})
		return 0, false
	}
	return id, true
}

func pageFrom(c *gin.Context) store.Page {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return store.Page{Limit: limit, Offset: offset}
}

func (h Proposals) Create(c *gin.Context) {
	var req struct {
		CreatorID    uint64  `json:"creatorId" binding:"required"`
		ContentID    *uint64 `json:"contentId"`
		ContentTitle string  `json:"contentTitle"`
		Subject      string  `json:"subject" binding:"required"`
		Message      string  `json:"message" binding:"required"`
		BudgetRange  string  `json:"budgetRange"`
		Timeline     string  `json:"timeline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	p, events, err := h.eng.Proposals.Create(c.Request.Context(), callerIdentity(c), engine.CreateInput{
		CreatorID:    req.CreatorID,
		ContentID:    req.ContentID,
		ContentTitle: req.ContentTitle,
		Subject:      req.Subject,
		Message:      req.Message,
		BudgetRange:  req.BudgetRange,
		Timeline:     req.Timeline,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.eng.Notify.EmitAll(c.Request.Context(), events)
	c.JSON(http.StatusCreated, p)
}

func (h Proposals) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	caller := callerIdentity(c)
	p, err := h.eng.Proposals.Get(c.Request.Context(), caller.UserID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Edit(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Subject      *string `json:"subject"`
		Message      *string `json:"message"`
		BudgetRange  *string `json:"budgetRange"`
		Timeline     *string `json:"timeline"`
		ContentID    *uint64 `json:"contentId"`
		ContentTitle *string `json:"contentTitle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	p, err := h.eng.Proposals.Edit(c.Request.Context(), callerIdentity(c).UserID, id, engine.Patch{
		Subject:      req.Subject,
		Message:      req.Message,
		BudgetRange:  req.BudgetRange,
		Timeline:     req.Timeline,
		ContentID:    req.ContentID,
		ContentTitle: req.ContentTitle,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Respond(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Decision        string `json:"decision" binding:"required,oneof=ACCEPTED REJECTED"`
		ResponseMessage string `json:"responseMessage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	p, events, err := h.eng.Proposals.Respond(c.Request.Context(), callerIdentity(c).UserID, id,
		types.ProposalStatus(req.Decision), req.ResponseMessage)
	if err != nil {
		fail(c, err)
		return
	}
	h.eng.Notify.EmitAll(c.Request.Context(), events)
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Archive(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.eng.Proposals.Archive(c.Request.Context(), callerIdentity(c).UserID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Proposals) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.eng.Proposals.Delete(c.Request.Context(), callerIdentity(c).UserID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Proposals) List(c *gin.Context) {
	caller := callerIdentity(c)
	role := caller.Role
	if r := types.Role(c.Query("role")); r.Valid() {
		role = r
	}
	filters := engine.Filters{
		Status: types.ProposalStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	sortBy := store.Sort(c.DefaultQuery("sort", string(store.SortNewest)))

	page, err := h.eng.Queries.ListProposals(c.Request.Context(), caller.UserID, role, filters, sortBy, pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposals": page.Items,
		"total":     page.Total,
		"hasMore":   page.HasMore,
	})
}

func (h Proposals) NeedsAttention(c *gin.Context) {
	caller := callerIdentity(c)
	ranked, err := h.eng.Queries.NeedsAttention(c.Request.Context(), caller.UserID, caller.Role, pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, gin.H{
			"proposal": r.Proposal,
			"unread":   r.Unread,
			"priority": r.Priority,
			"summary":  engine.Summarize(&r.Proposal, 140),
		})
	}
	c.JSON(http.StatusOK, gin.H{"proposals": out})
}
