package handler

import (
	"github.com/gin-gonic/gin"

	inspectionapp "github.com/agrocredit/backend/internal/application/inspection"
)

// InspectionHandler drives the inspection state machine
type InspectionHandler struct {
	BaseHandler
	service *inspectionapp.Service
}

// NewInspectionHandler creates a new InspectionHandler
func NewInspectionHandler(service *inspectionapp.Service) *InspectionHandler {
	return &InspectionHandler{service: service}
}

// Create godoc
// @ID           createInspection
// @Summary      Request an inspection of a parcel
// @Tags         inspections
// @Accept       json
// @Produce      json
// @Param        request body inspectionapp.CreateInspectionRequest true "Inspection request"
// @Success      201 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections [post]
func (h *InspectionHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req inspectionapp.CreateInspectionRequest
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

// Schedule godoc
// @ID           scheduleInspection
// @Summary      Schedule a pending inspection
// @Tags         inspections
// @Accept       json
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Param        request body inspectionapp.ScheduleInspectionRequest true "Schedule"
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id}/schedule [post]
func (h *InspectionHandler) Schedule(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inspectionapp.ScheduleInspectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Schedule(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Start godoc
// @ID           startInspection
// @Summary      Mark a scheduled inspection as in progress
// @Tags         inspections
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id}/start [post]
func (h *InspectionHandler) Start(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.Start(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Approve godoc
// @ID           approveInspection
// @Summary      Approve an inspection with its harvest estimate
// @Description  Completes the inspection. The approval event registers the
// @Description  farmer as a productive subject and records the estimate.
// @Tags         inspections
// @Accept       json
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Param        request body inspectionapp.ApproveInspectionRequest true "Approval"
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id}/approve [post]
func (h *InspectionHandler) Approve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inspectionapp.ApproveInspectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Approve(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject godoc
// @ID           rejectInspection
// @Summary      Reject an inspection
// @Tags         inspections
// @Accept       json
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Param        request body inspectionapp.RejectInspectionRequest true "Rejection"
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id}/reject [post]
func (h *InspectionHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inspectionapp.RejectInspectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Reject(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get godoc
// @ID           getInspection
// @Summary      Get an inspection
// @Tags         inspections
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id} [get]
func (h *InspectionHandler) Get(c *gin.Context) {
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
// @ID           listInspections
// @Summary      List inspections
// @Tags         inspections
// @Produce      json
// @Param        parcel_id query string false "Parcel ID" format(uuid)
// @Param        farmer_id query string false "Farmer ID" format(uuid)
// @Param        status query string false "Status" Enums(PENDING, SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} APIResponse[[]inspectionapp.InspectionResponse]
// @Security     BearerAuth
// @Router       /inspections [get]
func (h *InspectionHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query inspectionapp.ListInspectionsQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}
