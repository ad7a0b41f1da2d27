package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/service"
)

// HistoryHandler 操作记录接口
type HistoryHandler struct {
	history service.HistoryService
}

// NewHistoryHandler 创建操作记录处理器
func NewHistoryHandler(history service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// RegisterRoutes 注册路由
func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	history := rg.Group("/history")
	{
		history.GET("", h.Query)            // 分页查询
		history.GET("/latest", h.Latest)    // 最新记录
		history.POST("/cleanup", h.Cleanup) // 按保留天数清理
	}
}

// Query 按条件分页查询
//
// 参数: operation, port, success, since, until (RFC3339), page, page_size
func (h *HistoryHandler) Query(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	// 先落盘缓冲中的记录，保证刚执行的操作可见
	h.history.Flush()

	logs, page, err := h.history.Query(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"items":      logs,
		"pagination": page,
	})
}

// Latest 最新N条记录
func (h *HistoryHandler) Latest(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		respondError(c, errors.Newf(errors.ErrInvalidParam, "limit %q", c.Query("limit")))
		return
	}

	h.history.Flush()

	logs, err := h.history.Latest(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, logs)
}

// Cleanup 删除过期记录
func (h *HistoryHandler) Cleanup(c *gin.Context) {
	n, err := h.history.Cleanup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": n})
}

func parseFilter(c *gin.Context) (*models.CommandLogFilter, error) {
	filter := &models.CommandLogFilter{
		Operation: c.Query("operation"),
		Port:      c.Query("port"),
	}

	if s := c.Query("success"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.Newf(errors.ErrInvalidParam, "success %q", s)
		}
		filter.Success = &b
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"since", &filter.Since},
		{"until", &filter.Until},
	} {
		if s := c.Query(p.name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, errors.Newf(errors.ErrInvalidParam, "%s %q", p.name, s)
			}
			*p.dst = &t
		}
	}

	var err error
	if s := c.Query("page"); s != "" {
		if filter.Page, err = strconv.Atoi(s); err != nil {
			return nil, errors.Newf(errors.ErrInvalidParam, "page %q", s)
		}
	}
	if s := c.Query("page_size"); s != "" {
		if filter.PageSize, err = strconv.Atoi(s); err != nil {
			return nil, errors.Newf(errors.ErrInvalidParam, "page_size %q", s)
		}
	}
	return filter, nil
}
