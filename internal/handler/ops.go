package handler

import (
	"net/http"
	"strconv"

	"paylog/internal/apierror"
	"paylog/internal/worker"

	"github.com/gin-gonic/gin"
)

// OpsHandler exposes operational endpoints for the async pipeline.
type OpsHandler struct{ dlq *worker.DeadLetterQueue }

func NewOpsHandler(dlq *worker.DeadLetterQueue) *OpsHandler { return &OpsHandler{dlq: dlq} }

// dlqQueueParam resolves the :queue path segment to a real queue name.
func dlqQueueParam(c *gin.Context) (string, bool) {
	switch c.Param("queue") {
	case "notification":
		return worker.QueueNotification, true
	case "email":
		return worker.QueueEmail, true
	default:
		c.JSON(http.StatusBadRequest, apierror.New("Unknown queue (use notification or email)"))
		return "", false
	}
}

// DLQStats godoc
// @Summary      Dead letter queue depths
// @Tags         ops
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]int64
// @Router       /v1/ops/dlq [get]
func (h *OpsHandler) DLQStats(c *gin.Context) {
	lengths, err := h.dlq.Lengths(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lengths)
}

// RequeueDLQ godoc
// @Summary      Redrive dead-lettered jobs
// @Description  Moves up to max parked entries back onto their source queue once the sink is healthy again.
// @Tags         ops
// @Produce      json
// @Security     BearerAuth
// @Param        queue path  string true "notification | email"
// @Param        max   query int    false "Entries to move (default 10)"
// @Success      200 {object} map[string]int
// @Router       /v1/ops/dlq/{queue}/requeue [post]
func (h *OpsHandler) RequeueDLQ(c *gin.Context) {
	queue, ok := dlqQueueParam(c)
	if !ok {
		return
	}
	max, _ := strconv.Atoi(c.DefaultQuery("max", "10"))
	moved, err := h.dlq.Requeue(c.Request.Context(), queue, max)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}
