package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/books_synth/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyRunId         = appctx.ContextKeyRunId
	ContextKeyStage         = appctx.ContextKeyStage
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeySerialStages  = appctx.ContextKeySerialStages
)

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunId)
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return appctx.Set(ctx, ContextKeyRunId, runId)
}

func GetStageFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyStage)
}

func SetStageInContext(ctx context.Context, stage string) context.Context {
	return appctx.Set(ctx, ContextKeyStage, stage)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetSerialStagesFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeySerialStages)
}

func SetSerialStagesInContext(ctx context.Context, serial bool) context.Context {
	return appctx.Set(ctx, ContextKeySerialStages, serial)
}
