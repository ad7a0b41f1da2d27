package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"go.uber.org/zap"
)

const mimeJSON = "application/json"

// OriginAllowed 判断请求来源是否可以操作串口
//
// 放行条件: 没有 Origin 头（非浏览器客户端）、来源在 allowed 中、
// 或来源与请求的 Host 相同且 Host 是 IP 或 localhost。
// 域名形式的同源不自动放行，避免 DNS 重绑定把外部页面变成同源。
func OriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
			return true
		}
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || !strings.EqualFold(u.Host, r.Host) {
		return false
	}
	return isLocalHost(u.Hostname())
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	return net.ParseIP(host) != nil
}

// SameOrigin 拒绝跨站的写请求
//
// GET、HEAD、OPTIONS 不检查。其余请求要求来源被允许，
// 带请求体时还必须是 application/json，浏览器无法用免预检的简单请求构造。
func SameOrigin(allowed []string) gin.HandlerFunc {
	log := logger.GetModuleLogger("api")
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !OriginAllowed(c.Request, allowed) {
			origin := c.GetHeader("Origin")
			log.Warn("拒绝跨站请求",
				zap.String("origin", origin),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			)
			Abort(c, errors.Newf(errors.ErrPermissionDenied, "origin %s not allowed", origin))
			return
		}

		if c.Request.ContentLength != 0 && c.ContentType() != mimeJSON {
			Abort(c, errors.Newf(errors.ErrInvalidParam, "content type must be %s", mimeJSON))
			return
		}
		c.Next()
	}
}
