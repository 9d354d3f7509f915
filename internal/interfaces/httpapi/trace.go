package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "clan-battles/internal/interfaces/httpapi"
	handlerSpanPrefix = "httpapi.Handler."
)

var (
	apiTracer = otel.Tracer(tracerName)
	noopSpan  = trace.SpanFromContext(context.Background())

	// Probe paths never get a server span.
	untracedPaths = map[string]struct{}{
		"/healthz": {},
		"/health":  {},
		"/livez":   {},
		"/readyz":  {},
	}
)

// RequestTracing opens the server span for every request except probes.
func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "clan-battles-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

func shouldTraceRequest(path string) bool {
	_, skip := untracedPaths[strings.ToLower(strings.TrimSpace(path))]
	return !skip
}

// startSpan opens a child span for handler methods only. Middleware and
// helpers share the request span, and requests without one stay untraced.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() || !strings.HasPrefix(name, handlerSpanPrefix) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name)
}
