package api

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/service"
)

const maxSettingSize = 64 << 10

// SettingHandler 界面偏好设置接口，值为任意JSON
type SettingHandler struct {
	settings service.SettingService
}

// NewSettingHandler 创建设置处理器
func NewSettingHandler(settings service.SettingService) *SettingHandler {
	return &SettingHandler{settings: settings}
}

// RegisterRoutes 注册路由
func (h *SettingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settings := rg.Group("/settings")
	{
		settings.GET("", h.List)
		settings.GET("/:key", h.Get)
		settings.PUT("/:key", h.Set)
		settings.DELETE("/:key", h.Delete)
	}
}

func (h *SettingHandler) List(c *gin.Context) {
	all, err := h.settings.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, all)
}

func (h *SettingHandler) Get(c *gin.Context) {
	value, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, value)
}

// Set 请求体即设置值
func (h *SettingHandler) Set(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSettingSize+1))
	if err != nil {
		bindError(c, err)
		return
	}
	if len(body) > maxSettingSize {
		respondError(c, errors.New(errors.ErrInvalidParam, "setting value too large"))
		return
	}

	if err := h.settings.Set(c.Request.Context(), c.Param("key"), json.RawMessage(body)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, json.RawMessage(body))
}

func (h *SettingHandler) Delete(c *gin.Context) {
	if err := h.settings.Delete(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
