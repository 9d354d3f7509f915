package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the batch job and the API.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	LogLevel                   logging.Level
	DBURL                      string
	DBDisablePreparedBinary    bool
	DBMaxOpenConns             int
	CacheEnabled               bool
	CacheTTL                   time.Duration
	CORSAllowedOrigins         []string
	InternalJobToken           string
	PprofEnabled               bool
	PprofAddr                  string
	ClashBaseURL               string
	ClashAPIToken              string
	ClashClanTag               string
	ClashTimeout               time.Duration
	ClashMaxRetries            int
	ClashRateLimitRPS          float64
	ClashCircuitEnabled        bool
	ClashCircuitFailureCount   int
	ClashCircuitOpenTimeout    time.Duration
	ClashCircuitHalfOpenMaxReq int
	StatsWorkers               int
	CardImagesDir              string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logLevel, err := logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_LOG_LEVEL: %w", err)
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if dbURL == "" && appEnv != EnvDev {
		return Config{}, fmt.Errorf("DB_URL is required when APP_ENV=%s", appEnv)
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	dbMaxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if dbMaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	corsAllowedOrigins := splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	if len(corsAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	clashClanTag := strings.ToUpper(strings.TrimSpace(getEnv("CLASH_CLAN_TAG", "#LGV2LVQY")))
	if !strings.HasPrefix(clashClanTag, "#") || len(clashClanTag) < 2 {
		return Config{}, fmt.Errorf("invalid CLASH_CLAN_TAG %q: must look like #ABC123", clashClanTag)
	}
	clashTimeout, err := time.ParseDuration(getEnv("CLASH_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_TIMEOUT: %w", err)
	}
	if clashTimeout <= 0 {
		return Config{}, fmt.Errorf("CLASH_TIMEOUT must be > 0")
	}
	clashMaxRetries, err := getEnvAsInt("CLASH_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_MAX_RETRIES: %w", err)
	}
	if clashMaxRetries < 0 {
		return Config{}, fmt.Errorf("CLASH_MAX_RETRIES must be >= 0")
	}
	clashRateLimitRPS, err := strconv.ParseFloat(strings.TrimSpace(getEnv("CLASH_RATE_LIMIT_RPS", "5")), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_RATE_LIMIT_RPS: %w", err)
	}
	if clashRateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("CLASH_RATE_LIMIT_RPS must be > 0")
	}
	clashCircuitEnabled, err := strconv.ParseBool(getEnv("CLASH_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_ENABLED: %w", err)
	}
	clashCircuitFailureCount, err := getEnvAsInt("CLASH_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if clashCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("CLASH_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	clashCircuitOpenTimeout, err := time.ParseDuration(getEnv("CLASH_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if clashCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("CLASH_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	clashCircuitHalfOpenMaxReq, err := getEnvAsInt("CLASH_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if clashCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("CLASH_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	statsWorkers, err := getEnvAsInt("STATS_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATS_WORKERS: %w", err)
	}
	if statsWorkers < 1 {
		return Config{}, fmt.Errorf("STATS_WORKERS must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "clan-battles"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		LogLevel:                   logLevel,
		DBURL:                      dbURL,
		DBDisablePreparedBinary:    dbDisablePreparedBinary,
		DBMaxOpenConns:             dbMaxOpenConns,
		CacheEnabled:               cacheEnabled,
		CacheTTL:                   cacheTTL,
		CORSAllowedOrigins:         corsAllowedOrigins,
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		ClashBaseURL:               strings.TrimSpace(getEnv("CLASH_BASE_URL", "https://api.clashroyale.com/v1")),
		ClashAPIToken:              strings.TrimSpace(getEnv("CLASH_API_TOKEN", "")),
		ClashClanTag:               clashClanTag,
		ClashTimeout:               clashTimeout,
		ClashMaxRetries:            clashMaxRetries,
		ClashRateLimitRPS:          clashRateLimitRPS,
		ClashCircuitEnabled:        clashCircuitEnabled,
		ClashCircuitFailureCount:   clashCircuitFailureCount,
		ClashCircuitOpenTimeout:    clashCircuitOpenTimeout,
		ClashCircuitHalfOpenMaxReq: clashCircuitHalfOpenMaxReq,
		StatsWorkers:               statsWorkers,
		CardImagesDir:              strings.TrimSpace(getEnv("CARD_IMAGES_DIR", "")),
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

// RequireUpstream checks the settings only the ingest job needs.
func (c Config) RequireUpstream() error {
	if c.ClashAPIToken == "" {
		return fmt.Errorf("CLASH_API_TOKEN is required to fetch from the Clash Royale API")
	}
	if c.ClashBaseURL == "" {
		return fmt.Errorf("CLASH_BASE_URL cannot be empty")
	}
	return nil
}

// UsesMemoryStorage reports whether the process runs on the in-process repositories.
func (c Config) UsesMemoryStorage() bool {
	return c.DBURL == ""
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}
	return ""
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
