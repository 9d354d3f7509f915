package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"github.com/riskibarqy/clan-battles/internal/usecase"
)

type Handler struct {
	battleService *usecase.BattleService
	statsService  *usecase.StatsService
	jobService    *usecase.JobService
	logger        *logging.Logger
	validator     *validator.Validate
}

// NewHandler wires the read services and the writer job. jobService may be nil
// when the deployment has no upstream token; the job route then answers 503.
func NewHandler(
	battleService *usecase.BattleService,
	statsService *usecase.StatsService,
	jobService *usecase.JobService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		battleService: battleService,
		statsService:  statsService,
		jobService:    jobService,
		logger:        logger.Named("httpapi"),
		validator:     validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListGameModes(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameModes")
	defer span.End()

	modes := battle.GameModes()
	items := make([]gameModeDTO, 0, len(modes))
	for _, mode := range modes {
		items = append(items, gameModeDTO{Name: mode.Name, Label: mode.Label})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	items, err := h.battleService.Players(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list players failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayer")
	defer span.End()

	req := playerTagRequest{Tag: normalizeTag(r.PathValue("tag"))}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.battleService.Player(ctx, req.Tag)
	if err != nil {
		h.logger.WarnContext(ctx, "get player failed", "player_tag", req.Tag, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, item)
}

func (h *Handler) ListBattles(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBattles")
	defer span.End()

	req, err := parseListBattlesQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.battleService.List(ctx, battle.Filter{
		Before:      req.Before,
		GameMode:    req.GameMode,
		PlayerTag:   req.PlayerTag,
		OpponentTag: req.OpponentTag,
		Limit:       req.Limit,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list battles failed",
			"player_tag", req.PlayerTag,
			"opponent_tag", req.OpponentTag,
			"game_mode", req.GameMode,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetHeadToHead(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetHeadToHead")
	defer span.End()

	query := r.URL.Query()
	req := headToHeadQuery{
		PlayerTag:   normalizeTag(query.Get("player_tag")),
		OpponentTag: normalizeTag(query.Get("opponent_tag")),
		GameMode:    strings.TrimSpace(query.Get("game_mode")),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.statsService.HeadToHead(ctx, req.PlayerTag, req.OpponentTag, req.GameMode)
	if err != nil {
		h.logger.WarnContext(ctx, "head to head failed",
			"player_tag", req.PlayerTag,
			"opponent_tag", req.OpponentTag,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListCardStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCardStats")
	defer span.End()

	req := cardStatsQuery{GameMode: strings.TrimSpace(r.URL.Query().Get("game_mode"))}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	stats, err := h.statsService.CardStats(ctx, req.GameMode)
	if err != nil {
		h.logger.WarnContext(ctx, "card stats failed", "game_mode", req.GameMode, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]cardStatDTO, 0, len(stats))
	for _, stat := range stats {
		items = append(items, cardStatDTO{
			Name:        stat.Name,
			Image:       stat.Image,
			BattleCount: stat.BattleCount,
			WinCount:    stat.WinCount,
			WinRate:     stat.WinRate(),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type gameModeDTO struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type cardStatDTO struct {
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	BattleCount int     `json:"battle_count"`
	WinCount    int     `json:"win_count"`
	WinRate     float64 `json:"win_rate"`
}

type playerTagRequest struct {
	Tag string `validate:"required,startswith=#,min=2,max=16"`
}

type listBattlesQuery struct {
	Before      time.Time
	GameMode    string `validate:"omitempty,max=64"`
	PlayerTag   string `validate:"omitempty,startswith=#,min=2,max=16"`
	OpponentTag string `validate:"omitempty,startswith=#,min=2,max=16"`
	Limit       int    `validate:"gte=0,lte=500"`
}

type headToHeadQuery struct {
	PlayerTag   string `validate:"required,startswith=#,min=2,max=16"`
	OpponentTag string `validate:"omitempty,startswith=#,min=2,max=16"`
	GameMode    string `validate:"omitempty,max=64"`
}

type cardStatsQuery struct {
	GameMode string `validate:"omitempty,max=64"`
}

func parseListBattlesQuery(r *http.Request) (listBattlesQuery, error) {
	query := r.URL.Query()
	req := listBattlesQuery{
		GameMode:    strings.TrimSpace(query.Get("game_mode")),
		PlayerTag:   normalizeTag(query.Get("player_tag")),
		OpponentTag: normalizeTag(query.Get("opponent_tag")),
		Limit:       battle.DefaultPageSize,
	}

	if raw := strings.TrimSpace(query.Get("before")); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return listBattlesQuery{}, fmt.Errorf("%w: before must be RFC3339: %v", usecase.ErrInvalidInput, err)
		}
		req.Before = before.UTC()
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return listBattlesQuery{}, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput)
		}
		req.Limit = limit
	}

	return req, nil
}

// normalizeTag accepts "#abc", "abc" and "%23abc" forms and returns "#ABC".
func normalizeTag(raw string) string {
	tag := strings.ToUpper(strings.TrimSpace(raw))
	tag = strings.TrimPrefix(tag, "%23")
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}
