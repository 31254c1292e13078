package handler

import (
	"github.com/gin-gonic/gin"

	eligibilityapp "github.com/agrocredit/backend/internal/application/eligibility"
	subjectapp "github.com/agrocredit/backend/internal/application/subject"
)

// SubjectHandler serves productive subjects and their eligibility
type SubjectHandler struct {
	BaseHandler
	registrar   *subjectapp.Registrar
	eligibility *eligibilityapp.Service
}

// NewSubjectHandler creates a new SubjectHandler
func NewSubjectHandler(registrar *subjectapp.Registrar, eligibility *eligibilityapp.Service) *SubjectHandler {
	return &SubjectHandler{registrar: registrar, eligibility: eligibility}
}

// Upsert godoc
// @ID           upsertSubject
// @Summary      Register or update a productive subject
// @Description  Keyed by identity number. Answers 201 when the subject was
// @Description  created and 200 when an existing one was updated.
// @Tags         subjects
// @Accept       json
// @Produce      json
// @Param        request body subjectapp.UpsertSubjectRequest true "Subject"
// @Success      200 {object} APIResponse[subjectapp.UpsertSubjectResponse]
// @Success      201 {object} APIResponse[subjectapp.UpsertSubjectResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /subjects [put]
func (h *SubjectHandler) Upsert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req subjectapp.UpsertSubjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.registrar.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if resp.Created {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// Get godoc
// @ID           getSubject
// @Summary      Get a productive subject
// @Tags         subjects
// @Produce      json
// @Param        id path string true "Subject ID" format(uuid)
// @Success      200 {object} APIResponse[subjectapp.SubjectResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.registrar.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// EligibleParcels godoc
// @ID           listEligibleParcels
// @Summary      List the parcels backing a subject's eligibility
// @Description  Returns each approved estimation and the amount the subject
// @Description  may still be financed.
// @Tags         subjects
// @Produce      json
// @Param        id path string true "Subject ID" format(uuid)
// @Success      200 {object} APIResponse[eligibilityapp.EligibilityResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /subjects/{id}/eligible-parcels [get]
func (h *SubjectHandler) EligibleParcels(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.eligibility.ListEligibleParcels(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
