package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildboard/internal/notify"
	"buildboard/internal/service"
)

type UserHandler struct {
	users      *service.UserService
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func NewUserHandler(users *service.UserService, dispatcher *notify.Dispatcher, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, dispatcher: dispatcher, logger: logger}
}

func (h *UserHandler) Register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, fx, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *UserHandler) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		// 凭证错误统一按 401 返回，不暴露用户是否存在
		if service.CodeOf(err) == service.CodeForbidden {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
