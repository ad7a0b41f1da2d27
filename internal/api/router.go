package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/middleware"
	"github.com/wfunc/serial-console/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Version 由 cmd/server 在构建时注入
var Version = "dev"

// Options 路由依赖
type Options struct {
	DB            *gorm.DB
	Services      *service.Services
	WebSocket     http.Handler // 为nil时不注册
	WebSocketPath string
	StaticDir     string // 前端静态文件目录，可为空
	// AllowedOrigins 额外允许的浏览器来源，见 middleware.OriginAllowed
	AllowedOrigins []string
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(opts Options) *Router {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.SameOrigin(opts.AllowedOrigins))

	r := &Router{
		engine:         engine,
		db:             opts.DB,
		services:       opts.Services,
		authMiddleware: middleware.NewAuthMiddleware(opts.Services.Auth),
		log:            logger.GetModuleLogger("api"),
	}
	r.setupRoutes(opts)
	return r
}

func (r *Router) setupRoutes(opts Options) {
	r.engine.GET("/health", r.healthCheck)

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		// 登录不需要认证
		v1.POST("/auth/login", NewAuthHandler(r.services.Auth).Login)

		protected := v1.Group("")
		protected.Use(r.authMiddleware.RequireAuth())

		NewSerialHandler(r.services.Serial).RegisterRoutes(protected)
		NewMotorHandler(r.services.Motor).RegisterRoutes(protected)
		NewSettingHandler(r.services.Setting).RegisterRoutes(protected)
		NewHistoryHandler(r.services.History).RegisterRoutes(protected)
	}

	if opts.WebSocket != nil {
		path := opts.WebSocketPath
		if path == "" {
			path = "/ws"
		}
		r.engine.GET(path, r.authMiddleware.RequireAuth(), gin.WrapH(opts.WebSocket))
	}

	if opts.StaticDir != "" {
		r.engine.Static("/static", opts.StaticDir)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		respondError(c, errors.Newf(errors.ErrNotFound, "%s %s", c.Request.Method, c.Request.URL.Path))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	status := gin.H{
		"status":  "healthy",
		"version": Version,
		"serial":  r.services.Serial.Status(),
	}

	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			r.log.Warn("数据库健康检查失败", zap.Error(err))
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}

	c.JSON(http.StatusOK, status)
}

// Handler 返回http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
