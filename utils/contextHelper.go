package utils

import (
	"context"

	"github.com/mmprintworks/printshop_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyChannel       = appctx.ContextKeyChannel
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetChannelFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyChannel)
}

func SetChannelInContext(ctx context.Context, channel string) context.Context {
	return appctx.Set(ctx, ContextKeyChannel, channel)
}
