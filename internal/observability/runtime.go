package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/clan-battles/internal/config"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
)

// Options selects what a process starts besides tracing and profiling.
type Options struct {
	// Component tags traces and profiles, e.g. "api" or "ingest".
	Component string
	// Pprof starts the side pprof listener when PPROF_ENABLED is also set.
	Pprof bool
}

// Runtime holds the observability hooks of one process.
type Runtime struct {
	logger          *logging.Logger
	tracingEnabled  bool
	stopProfiler    func() error
	pprofServer     *http.Server
	shutdownTracing func(context.Context) error
}

// Start configures uptrace, pyroscope and pprof from cfg. A disabled backend
// is logged and skipped.
func Start(cfg config.Config, logger *logging.Logger, opts Options) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{logger: logger.Named("observability")}

	rt.startTracing(cfg, opts)
	if err := rt.startProfiling(cfg, opts); err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	if opts.Pprof {
		rt.startPprof(cfg)
	}
	return rt, nil
}

// TracingEnabled reports whether spans are exported.
func (r *Runtime) TracingEnabled() bool {
	return r != nil && r.tracingEnabled
}

// Shutdown stops every started backend and flushes pending spans.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}

	var errs []error
	if r.pprofServer != nil {
		if err := r.pprofServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop pprof: %w", err))
		} else {
			r.logger.Info("pprof server stopped")
		}
	}
	if r.stopProfiler != nil {
		if err := r.stopProfiler(); err != nil {
			errs = append(errs, fmt.Errorf("stop pyroscope: %w", err))
		}
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown uptrace: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) startTracing(cfg config.Config, opts Options) {
	if !cfg.UptraceEnabled {
		r.logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return
	}
	if strings.TrimSpace(cfg.UptraceDSN) == "" {
		r.logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return
	}

	serviceName := componentName(cfg.ServiceName, opts.Component)
	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(serviceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
	)
	r.tracingEnabled = true
	r.shutdownTracing = uptrace.Shutdown

	r.logger.Info("uptrace enabled",
		"service_name", serviceName,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.AppEnv,
	)
}

func (r *Runtime) startProfiling(cfg config.Config, opts Options) error {
	if !cfg.PyroscopeEnabled {
		r.logger.Info("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return nil
	}

	appName := componentName(cfg.PyroscopeAppName, opts.Component)
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   cfg.PyroscopeServerAddress,
		AuthToken:       cfg.PyroscopeAuthToken,
		UploadRate:      cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":       cfg.AppEnv,
			"service":   cfg.ServiceName,
			"component": opts.Component,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return err
	}
	r.stopProfiler = profiler.Stop

	r.logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", appName)
	return nil
}

func (r *Runtime) startPprof(cfg config.Config) {
	if !cfg.PprofEnabled {
		r.logger.Info("pprof disabled", "reason", "PPROF_ENABLED=false")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	r.pprofServer = &http.Server{
		Addr:              cfg.PprofAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv, logger := r.pprofServer, r.logger
	go func() {
		logger.Info("pprof server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pprof server failed", "error", err)
		}
	}()
}

// componentName turns ("clan-battles", "ingest") into "clan-battles-ingest".
// The api keeps the bare service name.
func componentName(base, component string) string {
	base = strings.TrimSpace(base)
	component = strings.TrimSpace(component)
	if component == "" || component == "api" {
		return base
	}
	return base + "-" + component
}
