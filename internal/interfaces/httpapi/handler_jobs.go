package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/clan-battles/internal/usecase"
)

const maxJobRequestBytes = 1 << 16

type ingestJobRequest struct {
	SyncMembers    bool `json:"sync_members"`
	RecomputeStats bool `json:"recompute_stats"`
}

func (h *Handler) RunIngestJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunIngestJob")
	defer span.End()

	if h.jobService == nil {
		writeError(ctx, w, fmt.Errorf("%w: ingestion job is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeIngestJobRequest(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// A full run outlasts APP_WRITE_TIMEOUT.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	result, err := h.jobService.Run(ctx, usecase.JobOptions{
		SyncMembers:    req.SyncMembers,
		RecomputeStats: req.RecomputeStats,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run ingest job failed",
			"sync_members", req.SyncMembers,
			"recompute_stats", req.RecomputeStats,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "ingest job finished",
		"run_id", result.Ingestion.RunID,
		"inserted", result.Ingestion.Totals.Inserted,
		"duration_ms", result.DurationMs,
	)
	writeSuccess(ctx, w, http.StatusOK, result)
}

// decodeIngestJobRequest treats an empty body as the zero request.
func decodeIngestJobRequest(w http.ResponseWriter, r *http.Request) (ingestJobRequest, error) {
	decoder := jsoniter.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobRequestBytes))
	decoder.DisallowUnknownFields()

	var req ingestJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return ingestJobRequest{}, nil
		}
		return ingestJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}
