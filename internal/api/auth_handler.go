package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/service"
)

// AuthHandler 登录接口
type AuthHandler struct {
	auth service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login 校验口令并签发访问令牌
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, resp)
}
