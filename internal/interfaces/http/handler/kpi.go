package handler

import (
	"github.com/gin-gonic/gin"

	kpiapp "github.com/agrocredit/backend/internal/application/kpi"
	"github.com/agrocredit/backend/internal/application/repayment"
)

// KPIHandler serves ledger aggregates
type KPIHandler struct {
	BaseHandler
	service *kpiapp.Service
}

// NewKPIHandler creates a new KPIHandler
func NewKPIHandler(service *kpiapp.Service) *KPIHandler {
	return &KPIHandler{service: service}
}

// Totals godoc
// @ID           getKPITotals
// @Summary      Income, retention and farmer profit totals
// @Tags         kpi
// @Produce      json
// @Param        from query string false "First day" format(date)
// @Param        to query string false "Last day" format(date)
// @Param        subject_id query string false "Subject ID" format(uuid)
// @Success      200 {object} APIResponse[kpiapp.TotalsResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /kpi/totals [get]
func (h *KPIHandler) Totals(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query repayment.LedgerQuery
	if !h.bindQuery(c, &query) {
		return
	}

	resp, err := h.service.Totals(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SelfCheck godoc
// @ID           getKPISelfCheck
// @Summary      Compare stored totals against the ledger rows
// @Tags         kpi
// @Produce      json
// @Param        from query string false "First day" format(date)
// @Param        to query string false "Last day" format(date)
// @Success      200 {object} APIResponse[kpiapp.SelfCheckResponse]
// @Security     BearerAuth
// @Router       /kpi/self-check [get]
func (h *KPIHandler) SelfCheck(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query repayment.LedgerQuery
	if !h.bindQuery(c, &query) {
		return
	}

	resp, err := h.service.SelfCheck(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
