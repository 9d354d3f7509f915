package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// appendFields turns alternating key/value args into zap fields. A zap.Field
// is taken as-is, a non-string key becomes "arg" and a trailing key logs null.
func appendFields(dst []zap.Field, args []any) []zap.Field {
	for i := 0; i < len(args); i++ {
		if field, ok := args[i].(zap.Field); ok {
			dst = append(dst, field)
			continue
		}

		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "arg"
		}
		if i+1 == len(args) {
			return append(dst, zap.Any(key, nil))
		}
		i++

		switch v := args[i].(type) {
		case error:
			dst = append(dst, zap.NamedError(key, v))
		default:
			dst = append(dst, zap.Any(key, v))
		}
	}
	return dst
}

func appendTraceFields(dst []zap.Field, ctx context.Context) []zap.Field {
	if ctx == nil {
		return dst
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return dst
	}
	return append(dst,
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
