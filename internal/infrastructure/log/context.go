package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// SourceContextPath 正在处理的源文件路径
	SourceContextPath = "source_path"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithSourcePath 在上下文中添加源文件路径
func WithSourcePath(ctx context.Context, sourcePath string) context.Context {
	return context.WithValue(ctx, SourceContextPath, sourcePath)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := ctx.Value(RequestContextID); requestID != nil {
		attrs = append(attrs, slog.String("request_id", requestID.(string)))
	}
	if sourcePath := ctx.Value(SourceContextPath); sourcePath != nil {
		attrs = append(attrs, slog.String("source_path", sourcePath.(string)))
	}

	return attrs
}
