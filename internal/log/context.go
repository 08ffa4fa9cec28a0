package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const datasetKey ctxKey = "dataset"

// ContextWithDataset stores the dataset name in the context.
func ContextWithDataset(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, datasetKey, name)
}

// DatasetFromContext extracts the dataset name from context if present.
func DatasetFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(datasetKey).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches the supplied logger with fields stored in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if name := DatasetFromContext(ctx); name != "" {
		return logger.With().Str(FieldDataset, name).Logger()
	}
	return logger
}

// FromContext returns the logger attached to ctx, or the base logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := Base()
		return &l
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		b := WithContext(ctx, Base())
		return &b
	}
	return l
}

// WithComponentFromContext returns a logger annotated with the component
// name and enriched with fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	l := FromContext(ctx)
	return l.With().Str(FieldComponent, component).Logger()
}
