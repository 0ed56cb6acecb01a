package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"buildboard/internal/handler"
	"buildboard/pkg/metrics"
	"buildboard/pkg/util"
)

type Handlers struct {
	Users    *handler.UserHandler
	Projects *handler.ProjectHandler
	Bids     *handler.BidHandler
	Reviews  *handler.ReviewHandler
	Payments *handler.PaymentHandler
	Queue    *handler.QueueHandler
}

func NewRouter(h Handlers, logger *zap.Logger, db *pgxpool.Pool, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 请求日志 + 延迟指标
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
		metrics.RecordHTTPRequestDuration(c.Request.Method, c.FullPath(), strconv.Itoa(status), latency)
	})

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/register", h.Users.Register)
	r.POST("/auth/login", h.Users.Login)

	// 未登录也能浏览的只读路由
	r.GET("/projects", h.Projects.ListOpen)
	r.GET("/projects/:id", h.Projects.Get)
	r.GET("/projects/:id/bids", h.Bids.ListByProject)
	r.GET("/projects/:id/review", h.Reviews.GetByProject)
	r.GET("/sellers/:id/reviews", h.Reviews.SellerSummary)
	r.GET("/users/:id", h.Users.Get)

	auth := r.Group("/", requireAuth(jwtSecret, logger))
	{
		auth.POST("/projects", h.Projects.Create)
		auth.GET("/my/projects", h.Projects.ListMine)
		auth.POST("/projects/:id/select-seller", h.Projects.SelectSeller)
		auth.POST("/projects/:id/complete", h.Projects.Complete)
		auth.POST("/projects/:id/cancel", h.Projects.Cancel)
		auth.POST("/projects/:id/deliverables", h.Projects.AddDeliverable)
		auth.GET("/projects/:id/deliverables", h.Projects.ListDeliverables)

		auth.POST("/projects/:id/bids", h.Bids.Place)
		auth.PUT("/bids/:id", h.Bids.Update)
		auth.DELETE("/bids/:id", h.Bids.Delete)

		auth.POST("/projects/:id/review", h.Reviews.Create)
		auth.PUT("/projects/:id/review", h.Reviews.Update)

		auth.POST("/projects/:id/payments", h.Payments.Create)
		auth.GET("/projects/:id/payments", h.Payments.History)
		auth.POST("/payments/:id/process", h.Payments.Process)

		auth.GET("/queue/stats", h.Queue.Stats)
	}

	return r
}

// requireAuth 校验 Bearer token，把 user_id / role 放进请求上下文
func requireAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		userID, role, err := util.ParseJWT(token, secret)
		if err != nil {
			logger.Warn("Token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}
