package service

import (
	"context"

	"github.com/wfunc/serial-console/internal/models"
)

// Caller 调用来源信息，写入操作记录
type Caller struct {
	Source    string
	RequestID string
	ClientIP  string
}

type callerKey struct{}

// WithCaller 在上下文中附加调用来源
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom 读取调用来源，缺省为内部调用
func CallerFrom(ctx context.Context) Caller {
	if c, ok := ctx.Value(callerKey{}).(Caller); ok {
		return c
	}
	return Caller{Source: models.SourceInternal}
}
