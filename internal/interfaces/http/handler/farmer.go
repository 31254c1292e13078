package handler

import (
	"github.com/gin-gonic/gin"

	farmapp "github.com/agrocredit/backend/internal/application/farm"
)

// importFormField is the multipart field carrying the CSV file
const importFormField = "file"

// FarmerHandler manages farmers and their parcels
type FarmerHandler struct {
	BaseHandler
	service *farmapp.Service
}

// NewFarmerHandler creates a new FarmerHandler
func NewFarmerHandler(service *farmapp.Service) *FarmerHandler {
	return &FarmerHandler{service: service}
}

// Create godoc
// @ID           createFarmer
// @Summary      Register a farmer
// @Tags         farmers
// @Accept       json
// @Produce      json
// @Param        request body farmapp.CreateFarmerRequest true "Farmer"
// @Success      201 {object} APIResponse[farmapp.FarmerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /farmers [post]
func (h *FarmerHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req farmapp.CreateFarmerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateFarmer(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update godoc
// @ID           updateFarmer
// @Summary      Update a farmer's contact details
// @Tags         farmers
// @Accept       json
// @Produce      json
// @Param        id path string true "Farmer ID" format(uuid)
// @Param        request body farmapp.UpdateFarmerRequest true "Changes"
// @Success      200 {object} APIResponse[farmapp.FarmerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /farmers/{id} [put]
func (h *FarmerHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req farmapp.UpdateFarmerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateFarmer(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get godoc
// @ID           getFarmer
// @Summary      Get a farmer
// @Tags         farmers
// @Produce      json
// @Param        id path string true "Farmer ID" format(uuid)
// @Success      200 {object} APIResponse[farmapp.FarmerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /farmers/{id} [get]
func (h *FarmerHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetFarmer(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listFarmers
// @Summary      List farmers
// @Tags         farmers
// @Produce      json
// @Param        search query string false "Name or identity number"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} APIResponse[[]farmapp.FarmerResponse]
// @Security     BearerAuth
// @Router       /farmers [get]
func (h *FarmerHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query farmapp.ListFarmersQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.service.ListFarmers(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateParcel godoc
// @ID           createParcel
// @Summary      Add a parcel to a farmer
// @Tags         farmers
// @Accept       json
// @Produce      json
// @Param        id path string true "Farmer ID" format(uuid)
// @Param        request body farmapp.CreateParcelRequest true "Parcel"
// @Success      201 {object} APIResponse[farmapp.ParcelResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /farmers/{id}/parcels [post]
func (h *FarmerHandler) CreateParcel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req farmapp.CreateParcelRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateParcel(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListParcels godoc
// @ID           listParcels
// @Summary      List a farmer's parcels
// @Tags         farmers
// @Produce      json
// @Param        id path string true "Farmer ID" format(uuid)
// @Success      200 {object} APIResponse[[]farmapp.ParcelResponse]
// @Security     BearerAuth
// @Router       /farmers/{id}/parcels [get]
func (h *FarmerHandler) ListParcels(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.ListParcels(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Import godoc
// @ID           importFarmers
// @Summary      Bulk-register farmers from a CSV file
// @Description  Columns: identity_number, name, phone, email, address. Rows
// @Description  with errors are reported and skipped; the rest are created.
// @Tags         farmers
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Success      200 {object} APIResponse[farmapp.ImportResult]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /farmers/import [post]
func (h *FarmerHandler) Import(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	header, err := c.FormFile(importFormField)
	if err != nil {
		h.BadRequest(c, "A CSV file is required in the '"+importFormField+"' field")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file cannot be read")
		return
	}
	defer file.Close()

	result, err := h.service.ImportFarmers(c.Request.Context(), actor, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
