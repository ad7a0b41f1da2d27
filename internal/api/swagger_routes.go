//go:build swagger

package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/wfunc/serial-console/docs/api"
)

// registerSwaggerRoutes 注册 Swagger UI（仅在 -tags swagger 时编译）
func registerSwaggerRoutes(engine *gin.Engine) {
	// doc.json 由 docs/api 注册到 swag 的文档提供
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.DocExpansion("list"),
	))
}
