// Package handler HTTP 入口。handler 只做参数解析和结果映射，
// 业务规则全部在 internal/service。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildboard/internal/service"
)

// writeError 把业务错误分类映射成 HTTP 状态码
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var status int
	switch service.CodeOf(err) {
	case service.CodeInvalid:
		status = http.StatusBadRequest
	case service.CodeNotFound:
		status = http.StatusNotFound
	case service.CodeForbidden:
		status = http.StatusForbidden
	case service.CodeConflict:
		status = http.StatusConflict
	default:
		logger.Error("Request failed with internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// callerID 取鉴权中间件放进上下文的用户 ID
func callerID(c *gin.Context) string {
	return c.GetString("user_id")
}
