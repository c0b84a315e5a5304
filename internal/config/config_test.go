package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:      AppConfig{Env: "local", Port: 8080},
		DB:       DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "calls"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Auth:     AuthConfig{JWTSecret: "secret"},
		LLM:      LLMConfig{APIKey: "k", MaxRetries: 2},
		SMTP:     SMTPConfig{Port: 587},
		Pipeline: PipelineConfig{MaxInflightPerWorkspace: 4, BatchParallelism: 4},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV is required", "LLM_API_KEY is required", "JWT_SECRET is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in aggregated error, got:\n%v", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected error for production without DB_SSLMODE, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.App.Storage != StoragePostgres {
		t.Fatalf("expected postgres storage default, got %q", c.App.Storage)
	}
	if c.Pipeline.Analyzer != AnalyzerModel {
		t.Fatalf("expected model analyzer default, got %q", c.Pipeline.Analyzer)
	}
	if c.Pipeline.InflightTTL != 10*time.Minute {
		t.Fatalf("expected 10m inflight ttl, got %s", c.Pipeline.InflightTTL)
	}
}

func TestValidate_MemoryStorageSkipsDB(t *testing.T) {
	c := validLocal()
	c.App.Storage = StorageMemory
	c.DB = DBConfig{}
	if err := c.Validate(); err != nil {
		t.Fatalf("memory storage should not need DB settings: %v", err)
	}

	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("memory storage must be refused in production")
	}
}

func TestValidate_QdrantDefaultsCollection(t *testing.T) {
	c := validLocal()
	c.Qdrant = QdrantConfig{URL: "http://localhost:6333", Dims: 1536}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Qdrant.Collection != "company_knowledge" {
		t.Fatalf("expected default collection, got %q", c.Qdrant.Collection)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("APP_STORAGE", "memory")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("REVIEWER_EMAILS", " lead@example.com, ,ops@example.com ")
	t.Setenv("PIPELINE_ANALYZER", "Lexical")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr() != ":9000" || c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected addrs %s %s", c.HTTPAddr(), c.RedisAddr())
	}
	if len(c.SMTP.ReviewerEmails) != 2 || c.SMTP.ReviewerEmails[1] != "ops@example.com" {
		t.Fatalf("unexpected reviewer list %v", c.SMTP.ReviewerEmails)
	}
	if c.Pipeline.Analyzer != AnalyzerLexical {
		t.Fatalf("expected lexical analyzer, got %q", c.Pipeline.Analyzer)
	}
	if c.SMTP.Port != 587 || c.Pipeline.MaxInflightPerWorkspace != 4 {
		t.Fatalf("expected defaults, got smtp=%d inflight=%d", c.SMTP.Port, c.Pipeline.MaxInflightPerWorkspace)
	}
}

func TestLoad_BadIntegerIsReported(t *testing.T) {
	t.Setenv("APP_PORT", "eighty")
	t.Setenv("REDIS_PORT", "6379")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "APP_PORT must be an integer") {
		t.Fatalf("expected integer parse error, got %v", err)
	}
}

func TestValidate_Reminders(t *testing.T) {
	c := validLocal()
	c.SMTP.ReviewerEmails = []string{"lead@example.com"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Reminders.Interval != 15*time.Minute || len(c.Reminders.Recipients) != 1 {
		t.Fatalf("unexpected reminder defaults: %+v", c.Reminders)
	}

	c = validLocal()
	c.Reminders.Enabled = true
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "REMINDER_EMAILS") {
		t.Fatalf("expected missing recipients error, got %v", err)
	}
}
