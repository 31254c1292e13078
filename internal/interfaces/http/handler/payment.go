package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrocredit/backend/internal/application/repayment"
)

// PaymentHandler registers harvest-sale payments and serves the ledger
type PaymentHandler struct {
	BaseHandler
	service *repayment.Service
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *repayment.Service) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Register godoc
// @ID           registerPayment
// @Summary      Register a harvest sale against a financing
// @Description  Retains part of the sale toward the financing and records
// @Description  the farmer's profit in the ledger.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body repayment.RegisterPaymentRequest true "Payment"
// @Success      201 {object} APIResponse[repayment.RegisterPaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Financing is not active"
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Register(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req repayment.RegisterPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.RegisterPayment(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Ledger godoc
// @ID           getLedger
// @Summary      Query the payment ledger
// @Description  Farmers only see their own subject's rows.
// @Tags         payments
// @Produce      json
// @Param        from query string false "First day" format(date)
// @Param        to query string false "Last day" format(date)
// @Param        subject_id query string false "Subject ID" format(uuid)
// @Param        financing_id query string false "Financing ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} APIResponse[[]repayment.PaymentResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) Ledger(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query repayment.LedgerQuery
	if !h.bindQuery(c, &query) {
		return
	}

	page, err := h.service.GetLedger(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Export godoc
// @ID           exportLedger
// @Summary      Export the ledger as a spreadsheet
// @Description  Paging parameters are ignored. X-Object-Key carries the
// @Description  storage key when the export was also uploaded.
// @Tags         payments
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        from query string false "First day" format(date)
// @Param        to query string false "Last day" format(date)
// @Param        subject_id query string false "Subject ID" format(uuid)
// @Success      200 {file} file
// @Failure      403 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query repayment.LedgerQuery
	if !h.bindQuery(c, &query) {
		return
	}

	export, err := h.service.ExportLedger(c.Request.Context(), actor, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Header("X-Payment-Count", strconv.Itoa(export.PaymentCount))
	if export.ObjectKey != "" {
		c.Header("X-Object-Key", export.ObjectKey)
	}
	if export.DownloadURL != "" {
		c.Header("X-Download-URL", export.DownloadURL)
		c.Header("X-Download-Expires", export.LinkExpiresAt.UTC().Format(http.TimeFormat))
	}
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
