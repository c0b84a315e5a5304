package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API and batch processes.
// All values must come from env (or a .env file loaded by the binary).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Whisper  WhisperConfig
	Qdrant   QdrantConfig
	NATS     NATSConfig
	SMTP     SMTPConfig
	CRM      CRMConfig
	Pipeline  PipelineConfig
	Reminders RemindersConfig
}

type AppConfig struct {
	Env  string
	Port int

	// Storage selects the call/audit store: postgres (default) or memory.
	Storage string

	// UploadDir holds audio uploads while they are processed. Empty means
	// the OS temp dir.
	UploadDir string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// LLMConfig points at an OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
}

type WhisperConfig struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

// QdrantConfig is optional; an empty URL disables company context retrieval.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dims       int
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL   string
	Token string
}

// SMTPConfig is optional; without a password mail is logged and skipped.
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	From           string
	ReviewerEmails []string
}

type CRMConfig struct {
	Type string
}

type PipelineConfig struct {
	// Analyzer is "model" (LLM with lexical fallback) or "lexical".
	Analyzer string

	MaxInflightPerWorkspace int
	InflightTTL             time.Duration
	BatchParallelism        int
}

// RemindersConfig drives the pending-review reminder job run by cmd/api.
type RemindersConfig struct {
	Enabled  bool
	Interval time.Duration
	// Recipients defaults to SMTP.ReviewerEmails.
	Recipients []string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Storage = strings.ToLower(strings.TrimSpace(os.Getenv("APP_STORAGE")))
	c.App.UploadDir = strings.TrimSpace(os.Getenv("APP_UPLOAD_DIR"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT", 5432)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	{
		n, err := optionalInt("REDIS_DB", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.LLM.BaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	c.LLM.APIKey = os.Getenv("LLM_API_KEY")
	c.LLM.Model = strings.TrimSpace(os.Getenv("LLM_MODEL"))
	c.LLM.EmbeddingModel = strings.TrimSpace(os.Getenv("LLM_EMBEDDING_MODEL"))
	c.LLM.Timeout = mustDuration("LLM_TIMEOUT")
	{
		n, err := optionalInt("LLM_MAX_RETRIES", 2)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.LLM.MaxRetries = n
	}

	c.Whisper.URL = strings.TrimSpace(os.Getenv("WHISPER_URL"))
	c.Whisper.Model = strings.TrimSpace(os.Getenv("WHISPER_MODEL"))
	c.Whisper.Language = strings.TrimSpace(os.Getenv("WHISPER_LANGUAGE"))
	c.Whisper.Timeout = mustDuration("WHISPER_TIMEOUT")

	c.Qdrant.URL = strings.TrimSpace(os.Getenv("QDRANT_URL"))
	c.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	c.Qdrant.Collection = strings.TrimSpace(os.Getenv("QDRANT_COLLECTION"))
	{
		n, err := optionalInt("QDRANT_DIMS", 1536)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Qdrant.Dims = n
	}

	c.NATS.URL = strings.TrimSpace(os.Getenv("NATS_URL"))
	c.NATS.Token = os.Getenv("NATS_TOKEN")

	c.SMTP.Host = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	{
		n, err := optionalInt("SMTP_PORT", 587)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.SMTP.Port = n
	}
	c.SMTP.Username = strings.TrimSpace(os.Getenv("SMTP_USERNAME"))
	c.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	c.SMTP.From = strings.TrimSpace(os.Getenv("SMTP_FROM"))
	c.SMTP.ReviewerEmails = splitList(os.Getenv("REVIEWER_EMAILS"))

	c.CRM.Type = strings.TrimSpace(os.Getenv("CRM_TYPE"))

	c.Pipeline.Analyzer = strings.ToLower(strings.TrimSpace(os.Getenv("PIPELINE_ANALYZER")))
	{
		n, err := optionalInt("PIPELINE_MAX_INFLIGHT", 4)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.MaxInflightPerWorkspace = n
	}
	c.Pipeline.InflightTTL = mustDuration("PIPELINE_INFLIGHT_TTL")
	{
		n, err := optionalInt("PIPELINE_BATCH_PARALLELISM", 4)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.BatchParallelism = n
	}

	if v := strings.TrimSpace(os.Getenv("REMINDERS_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("REMINDERS_ENABLED must be a boolean, got %q", v))
		}
		c.Reminders.Enabled = b
	}
	c.Reminders.Interval = mustDuration("REMINDER_INTERVAL")
	c.Reminders.Recipients = splitList(os.Getenv("REMINDER_EMAILS"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills env-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Storage == "" {
		c.App.Storage = StoragePostgres
	}
	switch c.App.Storage {
	case StoragePostgres:
		errs = append(errs, c.validateDB()...)
	case StorageMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("APP_STORAGE=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("APP_STORAGE must be one of postgres, memory, got %q", c.App.Storage))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY is required"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_RETRIES must be >= 0, got %d", c.LLM.MaxRetries))
	}

	if c.Qdrant.URL != "" {
		if c.Qdrant.Collection == "" {
			c.Qdrant.Collection = "company_knowledge"
		}
		if c.Qdrant.Dims <= 0 {
			errs = append(errs, fmt.Errorf("QDRANT_DIMS must be > 0, got %d", c.Qdrant.Dims))
		}
	}

	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT must be a valid port, got %d", c.SMTP.Port))
	}
	if c.SMTP.Password != "" && c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when SMTP_PASSWORD is set"))
	}

	if c.Pipeline.Analyzer == "" {
		c.Pipeline.Analyzer = AnalyzerModel
	}
	if c.Pipeline.Analyzer != AnalyzerModel && c.Pipeline.Analyzer != AnalyzerLexical {
		errs = append(errs, fmt.Errorf("PIPELINE_ANALYZER must be one of model, lexical, got %q", c.Pipeline.Analyzer))
	}
	if c.Pipeline.MaxInflightPerWorkspace <= 0 {
		errs = append(errs, fmt.Errorf("PIPELINE_MAX_INFLIGHT must be > 0, got %d", c.Pipeline.MaxInflightPerWorkspace))
	}
	if c.Pipeline.InflightTTL <= 0 {
		c.Pipeline.InflightTTL = 10 * time.Minute
	}
	if c.Pipeline.BatchParallelism <= 0 {
		errs = append(errs, fmt.Errorf("PIPELINE_BATCH_PARALLELISM must be > 0, got %d", c.Pipeline.BatchParallelism))
	}

	if c.Reminders.Interval <= 0 {
		c.Reminders.Interval = 15 * time.Minute
	}
	if len(c.Reminders.Recipients) == 0 {
		c.Reminders.Recipients = c.SMTP.ReviewerEmails
	}
	if c.Reminders.Enabled && len(c.Reminders.Recipients) == 0 {
		errs = append(errs, errors.New("REMINDER_EMAILS or REVIEWER_EMAILS is required when REMINDERS_ENABLED is set"))
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	AnalyzerModel   = "model"
	AnalyzerLexical = "lexical"
)

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string, def int) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return def, nil
	}
	return mustInt(key)
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
