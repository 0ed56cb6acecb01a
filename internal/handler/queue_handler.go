package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildboard/internal/queue"
)

// QueueHandler 通知队列的深度快照，给运维看的
type QueueHandler struct {
	queue  queue.Queue
	logger *zap.Logger
}

func NewQueueHandler(q queue.Queue, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{queue: q, logger: logger}
}

func (h *QueueHandler) Stats(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read queue stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
