package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildboard/internal/notify"
	"buildboard/internal/service"
)

type BidHandler struct {
	bids       *service.BidService
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func NewBidHandler(bids *service.BidService, dispatcher *notify.Dispatcher, logger *zap.Logger) *BidHandler {
	return &BidHandler{bids: bids, dispatcher: dispatcher, logger: logger}
}

func (h *BidHandler) Place(c *gin.Context) {
	var in service.PlaceBidInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bid, fx, err := h.bids.Place(c.Request.Context(), callerID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusCreated, gin.H{"bid": bid})
}

func (h *BidHandler) ListByProject(c *gin.Context) {
	bids, err := h.bids.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *BidHandler) Update(c *gin.Context) {
	var in service.UpdateBidInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bid, err := h.bids.Update(c.Request.Context(), callerID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid": bid})
}

func (h *BidHandler) Delete(c *gin.Context) {
	if err := h.bids.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
