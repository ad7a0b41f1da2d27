package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/middleware"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/service"
	"go.uber.org/zap"
)

// Response 成功响应
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{Success: true, Data: data})
}

// respondError 非调试模式下不返回调用栈
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if errors.IsCritical(appErr) {
		logger.GetModuleLogger("api").Error("请求处理遇到严重错误",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(appErr),
		)
	}
	if !gin.IsDebugging() && len(appErr.Stack) > 0 {
		cp := *appErr
		cp.Stack = nil
		appErr = &cp
	}
	middleware.Abort(c, appErr)
}

func bindError(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
}

// callerContext 把请求来源带入服务调用
func callerContext(c *gin.Context) context.Context {
	return service.WithCaller(c.Request.Context(), service.Caller{
		Source:    models.SourceHTTP,
		RequestID: middleware.GetRequestID(c),
		ClientIP:  c.ClientIP(),
	})
}
