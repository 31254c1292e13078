package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/agrocredit/backend/internal/application/event"
)

// OutboxHandler exposes dead-letter administration of the event outbox
type OutboxHandler struct {
	BaseHandler
	service *event.OutboxService
}

func NewOutboxHandler(service *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{service: service}
}

// DeadLetters godoc
// @ID           listOutboxDeadLetters
// @Summary      List dead letters
// @Description  Events whose delivery gave up, oldest first
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]event.EntryResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/dead [get]
func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query event.DeadLetterQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.service.DeadLetters(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Entry godoc
// @ID           getOutboxEntry
// @Summary      Get an outbox entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.EntryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/{id} [get]
func (h *OutboxHandler) Entry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Entry(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Requeue godoc
// @ID           requeueOutboxEntry
// @Summary      Requeue a dead letter
// @Description  Resets a dead letter so the processor delivers it again
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.EntryResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/{id}/retry [post]
func (h *OutboxHandler) Requeue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Requeue(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RequeueAll godoc
// @ID           requeueAllOutboxDeadLetters
// @Summary      Requeue every dead letter
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.RequeueResult]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/dead/retry-all [post]
func (h *OutboxHandler) RequeueAll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	result, err := h.service.RequeueAllDead(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Outbox delivery statistics
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.StatsResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
