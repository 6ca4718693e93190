package handler

import (
	"net/http"
	"strconv"

	"paylog/internal/apierror"
	"paylog/internal/dto"
	"paylog/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// Record godoc
// @Summary      Record a payment against an invoice
// @Description  One atomic unit: the remaining balance is recomputed under the invoice row lock before the payment is accepted.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RecordPaymentRequest true "Payment details"
// @Success      201  {object} dto.PaymentResult
// @Failure      409  {object} apierror.APIError
// @Router       /v1/payments [post]
func (h *PaymentsHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Record(c.Request.Context(), actorFromClaims(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Approve godoc
// @Summary      Approve a pending payment
// @Description  Re-runs the overpayment check and status recomputation inside its own transaction.
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Payment id"
// @Success      200 {object} dto.PaymentResult
// @Failure      409 {object} apierror.APIError
// @Router       /v1/payments/{id}/approve [patch]
func (h *PaymentsHandler) Approve(c *gin.Context) {
	id, ok := paymentID(c)
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

// Reverse godoc
// @Summary      Reverse a payment
// @Description  Idempotent: reversing an already-reversed payment returns the unchanged snapshot. A paid invoice re-opens to partial/unpaid.
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Payment id"
// @Success      200 {object} dto.PaymentResult
// @Router       /v1/payments/{id} [delete]
func (h *PaymentsHandler) Reverse(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Reverse(c.Request.Context(), actorFromClaims(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListByInvoice godoc
// @Summary      List payments for an invoice
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Invoice id"
// @Success      200 {array} dto.PaymentResponse
// @Router       /v1/invoices/{id}/payments [get]
func (h *PaymentsHandler) ListByInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func paymentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewCoded(service.CodeValidation, "Invalid payment id"))
		return 0, false
	}
	return uint(id), true
}
