package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxImageBytes  = 5 * 1024 * 1024
	// DefaultMaxUploadBytes caps request bodies when the size guard is off.
	DefaultMaxUploadBytes = 32 * 1024 * 1024
	// multipartSlack covers form boundaries and the context field on top of the image itself.
	multipartSlack        = 1024 * 1024

	StrategyPooled = "pooled"
	StrategyAdHoc  = "adhoc"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port" validate:"required,numeric"`
	UploadDir string `yaml:"uploadDir" validate:"required"`
	LogLevel  string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"logFormat" validate:"oneof=json console"`

	// SizeGuard включает отсечку по размеру картинки до обращения к модели.
	SizeGuard      bool  `yaml:"sizeGuard"`
	MaxImageBytes  int64 `yaml:"maxImageBytes" validate:"gt=0"`
	// MaxUploadBytes ограничивает тело запроса, только когда SizeGuard выключен.
	MaxUploadBytes int64 `yaml:"maxUploadBytes" validate:"gt=0"`

	LLM       LLMConfig       `yaml:"llm"`
	DB        DBConfig        `yaml:"database"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=openai gemini ollama"`
	BaseURL  string        `yaml:"baseURL" validate:"omitempty,url"`
	Model    string        `yaml:"model" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	APIKey   string        `yaml:"-"`

	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"geminiModel"`

	OllamaHost  string `yaml:"ollamaHost" validate:"omitempty,url"`
	OllamaModel string `yaml:"ollamaModel"`
}

type DBConfig struct {
	Driver          string        `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN             string        `yaml:"-" validate:"required"`
	Strategy        string        `yaml:"strategy" validate:"oneof=pooled adhoc"`
	PoolMin         int           `yaml:"poolMin" validate:"min=0"`
	PoolMax         int           `yaml:"poolMax" validate:"min=1,gtefield=PoolMin"`
	AutoCreateTable bool          `yaml:"autoCreateTable"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout" validate:"gt=0"`
}

type TelegramConfig struct {
	BotToken string `yaml:"-"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

// Defaults mirrors the behaviour of the pooled variant of the service.
func Defaults() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           "8080",
		UploadDir:      defaultUploadDir(),
		LogLevel:       "info",
		LogFormat:      "json",
		SizeGuard:      true,
		MaxImageBytes:  DefaultMaxImageBytes,
		MaxUploadBytes: DefaultMaxUploadBytes,
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.lingyiwanwu.com/v1",
			Model:       "yi-vision-v2",
			Timeout:     60 * time.Second,
			GeminiModel: "gemini-2.5-flash",
			OllamaHost:  "http://127.0.0.1:11434",
			OllamaModel: "llava",
		},
		DB: DBConfig{
			Driver:          DriverPostgres,
			Strategy:        StrategyPooled,
			PoolMin:         1,
			PoolMax:         10,
			AutoCreateTable: true,
			ConnectTimeout:  5 * time.Second,
		},
		RateLimit: RateLimitConfig{Burst: 1},
	}
}

// Load builds the configuration from defaults, an optional YAML file at CONFIG_PATH
// and the process environment, in that order of precedence (env wins).
func Load() (*Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	overrideString(&c.Host, "HOST")
	// Prefer platform PORT env var
	overrideString(&c.Port, "PORT")
	overrideString(&c.UploadDir, "UPLOAD_DIR")
	overrideString(&c.LogLevel, "LOG_LEVEL")
	overrideString(&c.LogFormat, "LOG_FORMAT")

	overrideString(&c.LLM.Provider, "LLM_PROVIDER")
	overrideString(&c.LLM.BaseURL, "LLM_BASE_URL")
	overrideString(&c.LLM.Model, "LLM_MODEL")
	overrideString(&c.LLM.APIKey, "_01_API_KEY", "LLM_API_KEY")
	overrideString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	overrideString(&c.LLM.GeminiModel, "GEMINI_MODEL")
	overrideString(&c.LLM.OllamaHost, "OLLAMA_HOST")
	overrideString(&c.LLM.OllamaModel, "OLLAMA_MODEL")

	overrideString(&c.DB.Driver, "DB_DRIVER")
	overrideString(&c.DB.Strategy, "DB_STRATEGY")
	overrideString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")

	var errs []error
	errs = append(errs,
		overrideBool(&c.SizeGuard, "SIZE_GUARD"),
		overrideInt64(&c.MaxImageBytes, "MAX_IMAGE_BYTES"),
		overrideInt64(&c.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		overrideDuration(&c.LLM.Timeout, "LLM_TIMEOUT"),
		overrideInt(&c.DB.PoolMin, "DB_POOL_MIN"),
		overrideInt(&c.DB.PoolMax, "DB_POOL_MAX"),
		overrideBool(&c.DB.AutoCreateTable, "DB_AUTO_CREATE"),
		overrideDuration(&c.DB.ConnectTimeout, "DB_CONNECT_TIMEOUT"),
		overrideFloat(&c.RateLimit.RPS, "RATE_LIMIT_RPS"),
		overrideInt(&c.RateLimit.Burst, "RATE_LIMIT_BURST"),
	)
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.DB.DSN = resolveDSN(c.DB.Driver)
	return nil
}

var validate = validator.New()

// Validate checks field constraints plus the credentials the selected provider needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return errors.New("missing required env _01_API_KEY (or LLM_API_KEY)")
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return errors.New("missing required env GEMINI_API_KEY")
		}
	}
	return nil
}

// UploadLimit is the request body cap for image uploads. With the guard on it
// follows MaxImageBytes, otherwise MaxUploadBytes.
func (c *Config) UploadLimit() int64 {
	if c.SizeGuard {
		return c.MaxImageBytes + multipartSlack
	}
	return c.MaxUploadBytes
}

// Addr is the listen address for the HTTP surface.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func resolveDSN(driver string) string {
	// Prefer DATABASE_URL if provided
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	if driver == DriverSQLite {
		return getEnv("SQLITE_PATH", "hazard_results.db")
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		// без пароля DSN не собираем: креды только из окружения
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), pass),
		Host:     net.JoinHostPort(getEnv("PGHOST", "localhost"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "for_hazards_identify"),
		RawQuery: "sslmode=" + getEnv("PGSSLMODE", "require"),
	}
	return u.String()
}

// SafeSummary renders the DSN without credentials, suitable for logs.
func (d DBConfig) SafeSummary() string {
	if d.Driver == DriverSQLite {
		return "sqlite file=" + d.DSN
	}
	u, err := url.Parse(d.DSN)
	if err != nil || u.Host == "" {
		return "dsn: parse error"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	user := u.User.Username()
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

func defaultUploadDir() string {
	return filepath.Join(os.TempDir(), "hazard-uploads")
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func overrideString(dst *string, keys ...string) {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			*dst = v
			return
		}
	}
}

func overrideBool(dst *bool, k string) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", k, err)
	}
	*dst = b
	return nil
}

func overrideInt(dst *int, k string) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", k, err)
	}
	*dst = n
	return nil
}

func overrideInt64(dst *int64, k string) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("env %s: %w", k, err)
	}
	*dst = n
	return nil
}

func overrideFloat(dst *float64, k string) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("env %s: %w", k, err)
	}
	*dst = f
	return nil
}

func overrideDuration(dst *time.Duration, k string) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", k, err)
	}
	*dst = d
	return nil
}
