// Package apidocs 内嵌的 OpenAPI 文档
package apidocs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var OpenAPI []byte

type document struct{}

// ReadDoc 实现 swag.Swagger
func (document) ReadDoc() string {
	return string(OpenAPI)
}

func init() {
	swag.Register(swag.Name, document{})
}
