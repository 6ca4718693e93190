package handler

import (
	"net/http"
	"strconv"

	"paylog/internal/apierror"
	"paylog/internal/dto"
	"paylog/internal/service"

	"github.com/gin-gonic/gin"
)

type InvoicesHandler struct{ svc service.InvoiceService }

func NewInvoicesHandler(svc service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

func invoiceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewCoded(service.CodeValidation, "Invalid invoice id"))
		return 0, false
	}
	return uint(id), true
}

// Create godoc
// @Summary      Submit a vendor invoice
// @Description  Creates an invoice in pending_approval with its TDS terms persisted per invoice.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateInvoiceRequest true "Invoice details"
// @Success      201  {object} dto.InvoiceResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/invoices [post]
func (h *InvoicesHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actorFromClaims(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary      Get one invoice
// @Description  Returns the invoice with its payment history and reconciliation figures.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/invoices/{id} [get]
func (h *InvoicesHandler) Get(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      List invoices
// @Description  Paginated listing filtered by status and vendor. Hidden invoices are excluded unless requested.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "Status filter or all"
// @Param        vendor_id query int    false "Vendor filter"
// @Param        page      query int    false "Page (default 1)"
// @Param        limit     query int    false "Rows per page (default 50)"
// @Success      200 {object} dto.InvoiceListResponse
// @Router       /v1/invoices [get]
func (h *InvoicesHandler) List(c *gin.Context) {
	var filter dto.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary      Approve a pending invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/invoices/{id}/approve [post]
func (h *InvoicesHandler) Approve(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Approve(c.Request.Context(), actorFromClaims(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reject godoc
// @Summary      Reject a pending invoice
// @Description  Requires a reason of at least 10 characters; the reason is stored with the rejection.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path int true "Invoice id"
// @Param        body body dto.RejectInvoiceRequest true "Rejection reason"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      422 {object} apierror.APIError
// @Router       /v1/invoices/{id}/reject [post]
func (h *InvoicesHandler) Reject(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	var req dto.RejectInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Reject(c.Request.Context(), actorFromClaims(c), id, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Hold godoc
// @Summary      Place an invoice on hold
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path int true "Invoice id"
// @Param        body body dto.HoldInvoiceRequest true "Hold reason"
// @Success      200 {object} dto.InvoiceResponse
// @Router       /v1/invoices/{id}/hold [post]
func (h *InvoicesHandler) Hold(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	var req dto.HoldInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Hold(c.Request.Context(), actorFromClaims(c), id, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Release godoc
// @Summary      Release an invoice from hold
// @Description  Status falls back to whatever the payment ledger derives.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      200 {object} dto.InvoiceResponse
// @Router       /v1/invoices/{id}/release [post]
func (h *InvoicesHandler) Release(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Release(c.Request.Context(), actorFromClaims(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resubmit godoc
// @Summary      Resubmit a rejected invoice
// @Description  Bounded to 3 resubmissions; the 4th attempt fails with ResubmissionLimitExceeded.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/invoices/{id}/resubmit [post]
func (h *InvoicesHandler) Resubmit(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Resubmit(c.Request.Context(), actorFromClaims(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Hide godoc
// @Summary      Hide an invoice from default listings
// @Tags         invoices
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      204
// @Router       /v1/invoices/{id}/hide [patch]
func (h *InvoicesHandler) Hide(c *gin.Context) {
	h.setHidden(c, true)
}

// Unhide godoc
// @Summary      Restore a hidden invoice
// @Tags         invoices
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      204
// @Router       /v1/invoices/{id}/unhide [patch]
func (h *InvoicesHandler) Unhide(c *gin.Context) {
	h.setHidden(c, false)
}

func (h *InvoicesHandler) setHidden(c *gin.Context, hidden bool) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	if err := h.svc.SetHidden(c.Request.Context(), actorFromClaims(c), id, hidden); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
