package clashroyale

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"github.com/riskibarqy/clan-battles/internal/platform/resilience"
	"github.com/riskibarqy/clan-battles/internal/usecase"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL      = "https://api.clashroyale.com/v1"
	defaultTimeout      = 10 * time.Second
	defaultRetryBackoff = time.Second
	maxResponseBytes    = 4 << 20
)

var errClashTransient = crerr.New("clash royale api transient failure")

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	RateLimitRPS   float64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads the public Clash Royale API. It implements
// usecase.ClanRosterProvider and usecase.BattleLogProvider.
type Client struct {
	httpClient   *fasthttp.Client
	baseURL      string
	token        string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                   "clan-battles",
			MaxConnsPerHost:        16,
			ReadTimeout:            timeout,
			WriteTimeout:           timeout,
			MaxIdleConnDuration:    time.Minute,
			MaxResponseBodySize:    maxResponseBytes,
			DisablePathNormalizing: true,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}

	client := &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		timeout:      timeout,
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       logger.Named("clashroyale"),
		breaker:      resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
	client.breaker.OnStateChange(func(from, to resilience.CircuitState) {
		client.logger.Warn("clash royale circuit breaker state changed", "from", from, "to", to)
	})
	return client
}

func (c *Client) FetchClanMembers(ctx context.Context, clanTag string) ([]usecase.ExternalMember, error) {
	path, err := tagPath("/clans/", clanTag, "/members")
	if err != nil {
		return nil, err
	}

	var envelope membersEnvelope
	if err := c.doJSON(ctx, path, &envelope); err != nil {
		return nil, fmt.Errorf("fetch clan members clan_tag=%s: %w", clanTag, err)
	}

	out := make([]usecase.ExternalMember, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		out = append(out, usecase.ExternalMember{
			Tag:  strings.TrimSpace(item.Tag),
			Name: strings.TrimSpace(item.Name),
		})
	}
	return out, nil
}

func (c *Client) FetchBattleLog(ctx context.Context, playerTag string) ([]usecase.ExternalBattle, error) {
	path, err := tagPath("/players/", playerTag, "/battlelog")
	if err != nil {
		return nil, err
	}

	var entries []battleLogEntry
	if err := c.doJSON(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("fetch battle log player_tag=%s: %w", playerTag, err)
	}

	out := make([]usecase.ExternalBattle, 0, len(entries))
	for _, entry := range entries {
		out = append(out, usecase.ExternalBattle{
			BattleTime: entry.BattleTime,
			Type:       entry.Type,
			GameMode:   entry.GameMode.Name,
			Team:       mapParticipants(entry.Team),
			Opponent:   mapParticipants(entry.Opponent),
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	out, err, _ := c.flight.Do(path, func() (any, error) {
		var raw []byte
		execErr := c.breaker.Execute(func() error {
			var reqErr error
			raw, reqErr = c.executeRequest(ctx, path)
			return reqErr
		}, isClashCircuitFailure)
		return raw, execErr
	})
	if err != nil {
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "clash royale circuit breaker rejected request", "path", path, "state", c.breaker.State())
			return fmt.Errorf("%w: clash royale api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode clash royale payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, path string) ([]byte, error) {
	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}

		raw, status, err := c.send(ctx, fullURL)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: send request: %s", errClashTransient, sanitizeSensitiveText(err.Error(), c.token))
		case status >= 200 && status < 300:
			return raw, nil
		case isRetryableStatus(status):
			lastErr = fmt.Errorf("%w: provider status=%d body=%s", errClashTransient, status, abbreviateBody(raw, c.token))
		case status == fasthttp.StatusNotFound:
			return nil, fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrNotFound, status, abbreviateBody(raw, c.token))
		case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
			return nil, fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrUnauthorized, status, abbreviateBody(raw, c.token))
		default:
			return nil, fmt.Errorf("provider status=%d body=%s", status, abbreviateBody(raw, c.token))
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * c.retryBackoff
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: provider request failed", errClashTransient)
	}
	c.logger.WarnContext(ctx, "clash royale request failed", "path", path, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, err
	}

	return append([]byte(nil), resp.Body()...), resp.StatusCode(), nil
}

// tagPath builds "/players/%23ABC/battlelog" from "#ABC".
func tagPath(prefix, tag, suffix string) (string, error) {
	tag = strings.TrimSpace(tag)
	if !strings.HasPrefix(tag, "#") || len(tag) < 2 {
		return "", fmt.Errorf("%w: tag must look like #ABC123, got %q", usecase.ErrInvalidInput, tag)
	}
	return prefix + "%23" + url.PathEscape(strings.ToUpper(tag[1:])) + suffix, nil
}

func mapParticipants(items []battleParticipant) []usecase.ExternalParticipant {
	out := make([]usecase.ExternalParticipant, 0, len(items))
	for _, item := range items {
		cards := make([]string, 0, len(item.Cards))
		for _, c := range item.Cards {
			cards = append(cards, c.Name)
		}
		out = append(out, usecase.ExternalParticipant{
			Tag:                     item.Tag,
			Name:                    item.Name,
			Crowns:                  item.Crowns,
			ElixirLeaked:            item.ElixirLeaked,
			KingTowerHitPoints:      item.KingTowerHitPoints,
			PrincessTowersHitPoints: append([]int(nil), item.PrincessTowersHitPoints...),
			Cards:                   cards,
		})
	}
	return out
}

func isClashCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return crerr.Is(err, errClashTransient)
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return value
}

func abbreviateBody(body []byte, token string) string {
	text := sanitizeSensitiveText(string(body), token)
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
