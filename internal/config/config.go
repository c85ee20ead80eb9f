package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DEFAULT_BASE_URL   = "https://swapi.dev"
	DEFAULT_USER_AGENT = "swapi-characters/1.0"
)

type ClientConfig struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	Limit       float64 // requests per second, 0 means unlimited
	Burst       int
	MaxRetries  int
	BaseBackoff time.Duration
}

type DBConfig struct {
	URI  string
	User string
	Pass string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	CORSOrigin      string
	RateLimitPerSec float64
	RateBurst       int
}

type TelemetryConfig struct {
	ServiceName    string
	TracesExporter string // none, stdout or otlp
	OTLPEndpoint   string
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type Config struct {
	Client    ClientConfig
	DB        DBConfig
	Server    ServerConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := Config{}

	baseURL, err := getEnvStringDefault("SWAPI_BASE_URL", DEFAULT_BASE_URL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	cfg.Client.BaseURL = strings.TrimRight(baseURL, "/")

	userAgent, err := getEnvStringDefault("SWAPI_USER_AGENT", DEFAULT_USER_AGENT)
	if err != nil {
		return nil, fmt.Errorf("invalid user agent: %w", err)
	}
	cfg.Client.UserAgent = userAgent

	duration, err := getEnvTimeDefault("HTTP_CLIENT_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	cfg.Client.Timeout = duration

	limit, err := getEnvFloatDefault("SWAPI_RATE_LIMIT", "0") // 0 leaves the character fan-out unthrottled
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	if limit < 0 {
		return nil, fmt.Errorf("invalid rate limit: %v must not be negative", limit)
	}
	cfg.Client.Limit = limit

	burst, err := getEnvIntDefault("SWAPI_BURST_AMOUNT", "1")
	if err != nil {
		return nil, fmt.Errorf("invalid burst amount: %w", err)
	}
	cfg.Client.Burst = burst

	maxRetries, err := getEnvIntDefault("SWAPI_MAX_RETRIES", "1")
	if err != nil {
		return nil, fmt.Errorf("invalid max retries: %w", err)
	}
	if maxRetries < 1 {
		return nil, fmt.Errorf("invalid max retries: %d, need at least one attempt", maxRetries)
	}
	cfg.Client.MaxRetries = maxRetries

	baseBackoff, err := getEnvTimeDefault("SWAPI_BASE_BACKOFF", "1s")
	if err != nil {
		return nil, fmt.Errorf("invalid base backoff: %w", err)
	}
	cfg.Client.BaseBackoff = baseBackoff

	// neo4j is only needed by the ingest command, see DBConfig.Validate.
	cfg.DB.URI = os.Getenv("NEO4J_URI")
	cfg.DB.User = os.Getenv("NEO4J_USER")
	cfg.DB.Pass = os.Getenv("NEO4J_PASSWORD")

	port, err := getEnvStringDefault("PORT", "8080")
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	cfg.Server.Addr = ":" + port

	readTimeout, err := getEnvTimeDefault("SERVER_READ_TIMEOUT", "5s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Server.ReadTimeout = readTimeout

	writeTimeout, err := getEnvTimeDefault("SERVER_WRITE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.Server.WriteTimeout = writeTimeout

	idleTimeout, err := getEnvTimeDefault("SERVER_IDLE_TIMEOUT", "120s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Server.IdleTimeout = idleTimeout

	shutdownTimeout, err := getEnvTimeDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	cfg.Server.ShutdownTimeout = shutdownTimeout

	requestTimeout, err := getEnvTimeDefault("REQUEST_TIMEOUT", "45s")
	if err != nil {
		return nil, fmt.Errorf("invalid request timeout: %w", err)
	}
	cfg.Server.RequestTimeout = requestTimeout

	corsOrigin, err := getEnvStringDefault("CORS_ALLOWED_ORIGIN", "*")
	if err != nil {
		return nil, fmt.Errorf("invalid cors origin: %w", err)
	}
	cfg.Server.CORSOrigin = corsOrigin

	rateLimitPerSec, err := getEnvFloatDefault("RATE_LIMIT_PER_SEC", "0.5")
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	cfg.Server.RateLimitPerSec = rateLimitPerSec

	rateBurst, err := getEnvIntDefault("RATE_BURST", "5")
	if err != nil {
		return nil, fmt.Errorf("invalid rate burst: %w", err)
	}
	cfg.Server.RateBurst = rateBurst

	serviceName, err := getEnvStringDefault("OTEL_SERVICE_NAME", "swapi-characters")
	if err != nil {
		return nil, fmt.Errorf("invalid service name: %w", err)
	}
	cfg.Telemetry.ServiceName = serviceName

	exporter, err := getEnvChoiceDefault("OTEL_TRACES_EXPORTER", "none", "none", "stdout", "otlp")
	if err != nil {
		return nil, fmt.Errorf("invalid traces exporter: %w", err)
	}
	cfg.Telemetry.TracesExporter = exporter
	cfg.Telemetry.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	level, err := getEnvChoiceDefault("LOG_LEVEL", "info", "debug", "info", "warn", "error")
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.Log.Level = level

	format, err := getEnvChoiceDefault("LOG_FORMAT", "text", "text", "json")
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}
	cfg.Log.Format = format

	return &cfg, nil
}

// Validate reports the first missing neo4j setting.
func (c DBConfig) Validate() error {
	if c.URI == "" {
		return errors.New("missing env: NEO4J_URI not defined")
	}
	if c.User == "" {
		return errors.New("missing env: NEO4J_USER not defined")
	}
	return nil
}

// ParseFilmID validates the film identifier taken from the command line. The
// identifier is interpolated into a URL path, so anything that would escape
// the path segment is rejected.
func ParseFilmID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", errors.New("film id is required")
	}
	if strings.ContainsAny(id, "/?#% \t\r\n") {
		return "", fmt.Errorf("film id %q must be a single path segment", raw)
	}
	return id, nil
}

// loadDotEnv sets any variable from path not already present in the
// environment. It silently does nothing if the file doesn't exist.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func getEnvStringDefault(key, defaultValue string) (string, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	return result, nil
}

func getEnvChoiceDefault(key, defaultValue string, choices ...string) (string, error) {
	result := strings.ToLower(os.Getenv(key))
	if result == "" {
		result = defaultValue
	}
	for _, choice := range choices {
		if result == choice {
			return result, nil
		}
	}
	return "", fmt.Errorf("%s=%q not one of %s", key, result, strings.Join(choices, ", "))
}

func getEnvTimeDefault(key, defaultValue string) (time.Duration, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}

	duration, err := time.ParseDuration(result)
	if err != nil {
		return 0, fmt.Errorf("error parsing duration: %w", err)
	}
	return duration, nil
}

func getEnvIntDefault(key, defaultValue string) (int, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	value, err := strconv.Atoi(result)
	if err != nil {
		return 0, fmt.Errorf("error parsing env: %w", err)
	}
	return value, nil
}

func getEnvFloatDefault(key, defaultValue string) (float64, error) {
	result := os.Getenv(key)
	if result == "" {
		result = defaultValue
	}
	value, err := strconv.ParseFloat(result, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing env: %w", err)
	}
	return value, nil
}
