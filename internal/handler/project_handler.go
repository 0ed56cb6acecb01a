package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildboard/internal/notify"
	"buildboard/internal/service"
)

type ProjectHandler struct {
	projects   *service.ProjectService
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func NewProjectHandler(projects *service.ProjectService, dispatcher *notify.Dispatcher, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, dispatcher: dispatcher, logger: logger}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var in service.CreateProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	project, fx, err := h.projects.Create(c.Request.Context(), callerID(c), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusCreated, gin.H{"project": project})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// ListOpen 可投标的项目列表
func (h *ProjectHandler) ListOpen(c *gin.Context) {
	projects, err := h.projects.ListOpen(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// ListMine 调用方自己的项目，按角色分买家/卖家视角
func (h *ProjectHandler) ListMine(c *gin.Context) {
	var (
		projects any
		err      error
	)
	if c.Query("as") == "seller" {
		projects, err = h.projects.ListBySeller(c.Request.Context(), callerID(c))
	} else {
		projects, err = h.projects.ListByBuyer(c.Request.Context(), callerID(c))
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) SelectSeller(c *gin.Context) {
	var in struct {
		SellerID string `json:"seller_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.SellerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seller_id required"})
		return
	}

	project, fx, err := h.projects.SelectSeller(c.Request.Context(), callerID(c), c.Param("id"), in.SellerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *ProjectHandler) Complete(c *gin.Context) {
	project, fx, err := h.projects.Complete(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *ProjectHandler) Cancel(c *gin.Context) {
	project, fx, err := h.projects.Cancel(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), fx)

	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *ProjectHandler) AddDeliverable(c *gin.Context) {
	var in struct {
		FileURL string `json:"file_url"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	d, err := h.projects.AddDeliverable(c.Request.Context(), callerID(c), c.Param("id"), in.FileURL)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deliverable": d})
}

func (h *ProjectHandler) ListDeliverables(c *gin.Context) {
	items, err := h.projects.ListDeliverables(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliverables": items})
}
