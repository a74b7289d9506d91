package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
)

type fakeValues map[string]any

func (f fakeValues) String(name string) string {
	s, _ := f[name].(string)
	return s
}

func (f fakeValues) Int(name string) int {
	n, _ := f[name].(int)
	return n
}

func (f fakeValues) Bool(name string) bool {
	b, _ := f[name].(bool)
	return b
}

func (f fakeValues) Duration(name string, def time.Duration) time.Duration {
	s, ok := f[name].(string)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func TestAppConfigFrom(t *testing.T) {
	cfg, err := appConfigFrom(fakeValues{
		"mongo_uri":              "mongodb://db:27017",
		"mongo_database":         "hackreg_test",
		"mongo_max_pool_size":    50,
		"redis_url":              "  redis://cache:6379/0 ",
		"s3_bucket":              "ideas",
		"cors_allowed_origins":   "https://a.example, ,https://b.example",
		"max_document_bytes":     1024,
		"rl_submission_points":   3,
		"rl_submission_window":   "2m",
		"timeout_submit":         "45s",
		"rate_limit_prefix":      "ev1:",
		"trust_proxy":            true,
		"registration_closes_at": "2026-11-01T18:30:00+05:30",
	})
	if err != nil {
		t.Fatalf("appConfigFrom: %v", err)
	}

	if cfg.MongoMaxPoolSize != 50 || cfg.MongoDatabase != "hackreg_test" {
		t.Errorf("mongo settings: %+v", cfg)
	}
	if cfg.RedisURL != "redis://cache:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.Blob.Bucket != "ideas" || cfg.Blob.UploadTimeout != time.Minute {
		t.Errorf("blob config: %+v", cfg.Blob)
	}
	if strings.Join(cfg.CORSAllowedOrigins, "|") != "https://a.example|https://b.example" {
		t.Errorf("CORS origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.MaxDocumentBytes != 1024 {
		t.Errorf("MaxDocumentBytes = %d", cfg.MaxDocumentBytes)
	}

	sub := cfg.RateLimits[ratelimit.BucketSubmission]
	if sub.Points != 3 || sub.Window != 2*time.Minute || sub.Block != 30*time.Minute {
		t.Errorf("submission policy = %+v", sub)
	}
	if gen := cfg.RateLimits[ratelimit.BucketGeneral]; gen != ratelimit.DefaultPolicies()[ratelimit.BucketGeneral] {
		t.Errorf("general policy should fall back to defaults, got %+v", gen)
	}
	if len(cfg.RateLimits) != len(ratelimit.Buckets) {
		t.Errorf("expected a policy per bucket, got %d", len(cfg.RateLimits))
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy not read")
	}
	if cfg.RateLimitPrefix != "ev1:" {
		t.Errorf("RateLimitPrefix = %q", cfg.RateLimitPrefix)
	}
	if cfg.Timeouts.Submit != 45*time.Second {
		t.Errorf("submit timeout = %v", cfg.Timeouts.Submit)
	}
	if want := time.Date(2026, 11, 1, 13, 0, 0, 0, time.UTC); !cfg.Registration.ClosesAt.Equal(want) {
		t.Errorf("ClosesAt = %v, want %v", cfg.Registration.ClosesAt, want)
	}
	if cfg.Registration.Closed || !cfg.Registration.OpensAt.IsZero() {
		t.Errorf("unexpected registration window %+v", cfg.Registration)
	}
}

func TestAppConfigFrom_BadRegistrationTime(t *testing.T) {
	_, err := appConfigFrom(fakeValues{"registration_opens_at": "next tuesday"})
	if err == nil || !strings.Contains(err.Error(), "registration_opens_at") {
		t.Fatalf("expected registration_opens_at error, got %v", err)
	}
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI: "mongodb://localhost:27017",
		RedisURL: "redis://localhost:6379/0",
		Blob: blobstore.Config{
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Bucket:          "ideas",
			PublicBaseURL:   "https://cdn.example.com",
		},
		MaxDocumentBytes: 5 << 20,
		RateLimits:       ratelimit.DefaultPolicies(),
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid dev", dev, func(*AppConfig) {}, ""},
		{"bad mongo uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://x" }, "MongoDB URI"},
		{"missing redis even in dev", dev, func(c *AppConfig) { c.RedisURL = "" }, "redis_url"},
		{"missing blob secret", dev, func(c *AppConfig) { c.Blob.SecretAccessKey = "" }, "secret"},
		{"zero document size", dev, func(c *AppConfig) { c.MaxDocumentBytes = 0 }, "max_document_bytes"},
		{"inverted registration window", dev, func(c *AppConfig) {
			c.Registration.OpensAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			c.Registration.ClosesAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		}, "registration_opens_at"},
		{"long ip hash key", dev, func(c *AppConfig) { c.IPHashKey = strings.Repeat("k", 65) }, "ip_hash_key"},
		{"prod needs session key", prod, func(c *AppConfig) { c.IPHashKey = "k" }, "session_key"},
		{"prod needs ip hash key", prod, func(c *AppConfig) { c.SessionKey = "s" }, "ip_hash_key"},
		{"valid prod", prod, func(c *AppConfig) { c.SessionKey = "s"; c.IPHashKey = "k" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
