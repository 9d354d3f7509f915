package httpapi

import (
	"net/http"

	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

type route struct {
	pattern string
	handler http.Handler
}

// routes lists every endpoint. Only the job trigger writes, and it sits behind
// the internal token.
func (h *Handler) routes(internalJobToken string) []route {
	return []route{
		{"GET /healthz", http.HandlerFunc(h.Healthz)},

		{"GET /v1/game-modes", http.HandlerFunc(h.ListGameModes)},
		{"GET /v1/players", http.HandlerFunc(h.ListPlayers)},
		{"GET /v1/players/{tag}", http.HandlerFunc(h.GetPlayer)},
		{"GET /v1/battles", http.HandlerFunc(h.ListBattles)},
		{"GET /v1/head-to-head", http.HandlerFunc(h.GetHeadToHead)},
		{"GET /v1/cards", http.HandlerFunc(h.ListCardStats)},

		{"POST /v1/internal/jobs/ingest", RequireInternalJobToken(internalJobToken, http.HandlerFunc(h.RunIngestJob))},
	}
}

// NewRouter mounts the routes and wraps them, outermost first, in tracing,
// access logging, CORS and panic recovery.
func NewRouter(handler *Handler, logger *logging.Logger, corsAllowedOrigins []string, internalJobToken string) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	for _, r := range handler.routes(internalJobToken) {
		mux.Handle(r.pattern, r.handler)
	}

	var h http.Handler = mux
	h = recoverPanic(logger, h)
	h = CORS(corsAllowedOrigins, h)
	h = RequestLogging(logger, h)
	return RequestTracing(h)
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.ErrorContext(r.Context(), "panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
			writeInternalError(r.Context(), w)
		}()
		next.ServeHTTP(w, r)
	})
}
