package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/service"
)

// 上下文键
const (
	ContextOperator  = "operator"
	ContextSessionID = "sessionID"
)

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth 访问控制关闭时直接放行
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authService.Enabled() {
			c.Next()
			return
		}

		token := ExtractToken(c)
		if token == "" {
			Abort(c, errors.New(errors.ErrAuthentication, "missing token"))
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			Abort(c, errors.AsAppError(err))
			return
		}

		c.Set(ContextOperator, claims.Operator)
		c.Set(ContextSessionID, claims.SessionID)
		c.Next()
	}
}

// ExtractToken 依次从 Authorization、X-Access-Token 和 token 参数读取令牌
//
// 浏览器的WebSocket握手无法设置请求头，只能走查询参数。
func ExtractToken(c *gin.Context) string {
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		parts := strings.SplitN(bearer, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}
	return c.Query("token")
}

// Abort 以统一错误格式终止请求
func Abort(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), errors.NewErrorResponse(err, GetRequestID(c)))
}
