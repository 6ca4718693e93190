package handler

import (
	"net/http"

	"paylog/internal/dto"
	"paylog/internal/service"

	"github.com/gin-gonic/gin"
)

type BulkHandler struct{ svc service.BulkService }

func NewBulkHandler(svc service.BulkService) *BulkHandler { return &BulkHandler{svc: svc} }

// BulkApprove godoc
// @Summary      Approve many invoices
// @Description  Each id is processed independently; partial success is a normal result, reported per item.
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.BulkApproveRequest true "Invoice ids"
// @Success      200  {object} dto.BulkResult
// @Router       /v1/invoices/bulk-approve [post]
func (h *BulkHandler) BulkApprove(c *gin.Context) {
	var req dto.BulkApproveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.BulkApprove(c.Request.Context(), actorFromClaims(c), req.IDs)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BulkReject godoc
// @Summary      Reject many invoices with one reason
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.BulkRejectRequest true "Invoice ids and reason"
// @Success      200  {object} dto.BulkResult
// @Router       /v1/invoices/bulk-reject [post]
func (h *BulkHandler) BulkReject(c *gin.Context) {
	var req dto.BulkRejectRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.BulkReject(c.Request.Context(), actorFromClaims(c), req.IDs, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary      Export invoices as CSV
// @Description  Read-only projection of the requested columns. A failing row emits placeholder cells and the export continues.
// @Tags         bulk
// @Accept       json
// @Produce      text/csv
// @Security     BearerAuth
// @Param        body body dto.BulkExportRequest true "Invoice ids and columns"
// @Success      200 {string} string "CSV text"
// @Router       /v1/invoices/export [post]
func (h *BulkHandler) Export(c *gin.Context) {
	var req dto.BulkExportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	csvText, err := h.svc.Export(c.Request.Context(), req.IDs, req.Columns)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csvText))
}
