package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	financingapp "github.com/agrocredit/backend/internal/application/financing"
)

// FinancingHandler serves the financing lifecycle
type FinancingHandler struct {
	BaseHandler
	service *financingapp.Service
	now     func() time.Time
}

// NewFinancingHandler creates a new FinancingHandler
func NewFinancingHandler(service *financingapp.Service) *FinancingHandler {
	return &FinancingHandler{service: service, now: time.Now}
}

// Create godoc
// @ID           createFinancing
// @Summary      Grant a financing against a subject's eligibility
// @Tags         financings
// @Accept       json
// @Produce      json
// @Param        request body financingapp.CreateFinancingRequest true "Financing"
// @Success      201 {object} APIResponse[financingapp.FinancingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Principal exceeds eligibility"
// @Security     BearerAuth
// @Router       /financings [post]
func (h *FinancingHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req financingapp.CreateFinancingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdateStatus godoc
// @ID           updateFinancingStatus
// @Summary      Move a financing to another state
// @Tags         financings
// @Accept       json
// @Produce      json
// @Param        id path string true "Financing ID" format(uuid)
// @Param        request body financingapp.UpdateStatusRequest true "Target state"
// @Success      200 {object} APIResponse[financingapp.FinancingResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /financings/{id}/status [patch]
func (h *FinancingHandler) UpdateStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req financingapp.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get godoc
// @ID           getFinancing
// @Summary      Get a financing
// @Tags         financings
// @Produce      json
// @Param        id path string true "Financing ID" format(uuid)
// @Success      200 {object} APIResponse[financingapp.FinancingResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /financings/{id} [get]
func (h *FinancingHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listFinancings
// @Summary      List financings by state
// @Tags         financings
// @Produce      json
// @Param        state query []string false "States" collectionFormat(multi)
// @Param        subject_id query string false "Subject ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} APIResponse[[]financingapp.FinancingResponse]
// @Security     BearerAuth
// @Router       /financings [get]
func (h *FinancingHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query financingapp.ListFinancingsQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.service.GetByStates(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// ReconcileOverdue godoc
// @ID           reconcileOverdueFinancings
// @Summary      Default financings past their harvest cycles
// @Description  Scans open financings and moves those past their last cycle
// @Description  plus grace period to INCUMPLIDO.
// @Tags         financings
// @Produce      json
// @Success      200 {object} APIResponse[financingapp.ReconcileResult]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /financings/reconcile-overdue [post]
func (h *FinancingHandler) ReconcileOverdue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.service.ReconcileOverdue(c.Request.Context(), actor, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
