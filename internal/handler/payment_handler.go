package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildboard/internal/notify"
	"buildboard/internal/service"
)

type PaymentHandler struct {
	payments   *service.PaymentService
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func NewPaymentHandler(payments *service.PaymentService, dispatcher *notify.Dispatcher, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, dispatcher: dispatcher, logger: logger}
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var in service.CreatePaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	payment, fx, err := h.payments.Create(c.Request.Context(), callerID(c), c.Param("id"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

func (h *PaymentHandler) Process(c *gin.Context) {
	payment, fx, err := h.payments.Process(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

func (h *PaymentHandler) History(c *gin.Context) {
	payments, err := h.payments.History(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
