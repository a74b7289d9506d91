// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/gates"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/submission"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for hackreg.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_url, etc.
//   - Environment variables: HACKREG_MONGO_URI, HACKREG_REDIS_URL, etc.
//   - Command-line flags: --mongo_uri, --redis_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hackreg", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "redis_url", Default: "", Desc: "Redis URL for rate-limit counters (required)"},

	// Blob storage
	{Name: "s3_endpoint", Default: "", Desc: "S3-compatible endpoint (blank for AWS)"},
	{Name: "s3_region", Default: "auto", Desc: "S3 region ('auto' for R2)"},
	{Name: "s3_access_key_id", Default: "", Desc: "S3 access key ID (required)"},
	{Name: "s3_secret_access_key", Default: "", Desc: "S3 secret access key (required)"},
	{Name: "s3_bucket", Default: "", Desc: "S3 bucket for idea documents (required)"},
	{Name: "s3_public_base_url", Default: "", Desc: "Public URL prefix for stored documents (required)"},
	{Name: "s3_upload_timeout", Default: "60s", Desc: "Upload deadline for one document"},

	{Name: "session_key", Default: "", Desc: "Wizard session signing key (blank in dev generates one)"},
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated origins allowed by CORS"},
	{Name: "max_document_bytes", Default: int(submission.DefaultMaxDocumentBytes), Desc: "Largest accepted idea document in bytes"},
	{Name: "upload_temp_dir", Default: "", Desc: "Directory for spooling uploads (blank uses the OS temp dir)"},
	{Name: "ip_hash_key", Default: "", Desc: "Key for hashing caller IPs on click events (required in prod)"},
	{Name: "trust_proxy", Default: true, Desc: "Resolve caller IPs from X-Forwarded-For/X-Real-IP set by a reverse proxy"},

	{Name: "rate_limit_prefix", Default: "hackreg_rl:", Desc: "Redis key prefix for rate-limit counters"},

	// Rate limits: <bucket>_points, <bucket>_window, <bucket>_block
	{Name: "rl_submission_points", Default: 10, Desc: "Submissions per window"},
	{Name: "rl_submission_window", Default: "1h", Desc: "Submission window"},
	{Name: "rl_submission_block", Default: "30m", Desc: "Submission block after exhaustion"},
	{Name: "rl_access_points", Default: 60, Desc: "Availability checks per window"},
	{Name: "rl_access_window", Default: "10m", Desc: "Availability window"},
	{Name: "rl_access_block", Default: "10m", Desc: "Availability block after exhaustion"},
	{Name: "rl_validation_points", Default: 50, Desc: "Step validations per window"},
	{Name: "rl_validation_window", Default: "10m", Desc: "Validation window"},
	{Name: "rl_validation_block", Default: "10m", Desc: "Validation block after exhaustion"},
	{Name: "rl_college_creation_points", Default: 10, Desc: "College additions per window"},
	{Name: "rl_college_creation_window", Default: "1h", Desc: "College creation window"},
	{Name: "rl_college_creation_block", Default: "30m", Desc: "College creation block after exhaustion"},
	{Name: "rl_general_points", Default: 100, Desc: "General requests per window"},
	{Name: "rl_general_window", Default: "15m", Desc: "General window"},
	{Name: "rl_general_block", Default: "15m", Desc: "General block after exhaustion"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check deadline"},
	{Name: "timeout_short", Default: "5s", Desc: "Single lookup deadline"},
	{Name: "timeout_medium", Default: "10s", Desc: "Validation and search deadline"},
	{Name: "timeout_submit", Default: "90s", Desc: "Whole submission deadline"},
	{Name: "timeout_batch", Default: "2m", Desc: "Batch import deadline"},

	// Registration window
	{Name: "registration_closed", Default: false, Desc: "Refuse all submissions"},
	{Name: "registration_opens_at", Default: "", Desc: "RFC 3339 time submissions open (blank: already open)"},
	{Name: "registration_closes_at", Default: "", Desc: "RFC 3339 time submissions close (blank: never)"},

	{Name: "college_cache_ttl", Default: "5m", Desc: "College directory cache lifetime"},
	{Name: "college_seed_file", Default: "", Desc: "YAML list of colleges imported at startup"},
}

// appValues is the subset of WAFFLE's loaded values LoadConfig reads.
type appValues interface {
	String(name string) string
	Int(name string) int
	Bool(name string) bool
	Duration(name string, def time.Duration) time.Duration
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, HACKREG_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, values, err := config.LoadWithAppConfig(logger, "HACKREG", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}
	appCfg, err := appConfigFrom(values)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

func appConfigFrom(v appValues) (AppConfig, error) {
	opensAt, err := parseTime(v.String("registration_opens_at"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("registration_opens_at: %w", err)
	}
	closesAt, err := parseTime(v.String("registration_closes_at"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("registration_closes_at: %w", err)
	}

	defPolicies := ratelimit.DefaultPolicies()
	policies := make(map[ratelimit.Bucket]ratelimit.Policy, len(ratelimit.Buckets))
	for _, b := range ratelimit.Buckets {
		def := defPolicies[b]
		p := ratelimit.Policy{
			Points: v.Int("rl_" + string(b) + "_points"),
			Window: v.Duration("rl_"+string(b)+"_window", def.Window),
			Block:  v.Duration("rl_"+string(b)+"_block", def.Block),
		}
		if p.Points <= 0 {
			p.Points = def.Points
		}
		policies[b] = p
	}

	return AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(v.Int("mongo_min_pool_size")),

		RedisURL: strings.TrimSpace(v.String("redis_url")),

		Blob: blobstore.Config{
			Endpoint:        v.String("s3_endpoint"),
			Region:          v.String("s3_region"),
			AccessKeyID:     v.String("s3_access_key_id"),
			SecretAccessKey: v.String("s3_secret_access_key"),
			Bucket:          v.String("s3_bucket"),
			PublicBaseURL:   v.String("s3_public_base_url"),
			UploadTimeout:   v.Duration("s3_upload_timeout", time.Minute),
		},

		SessionKey:         v.String("session_key"),
		CORSAllowedOrigins: splitList(v.String("cors_allowed_origins")),
		MaxDocumentBytes:   int64(v.Int("max_document_bytes")),
		UploadTempDir:      v.String("upload_temp_dir"),
		IPHashKey:          v.String("ip_hash_key"),
		TrustProxy:         v.Bool("trust_proxy"),

		RateLimits:      policies,
		RateLimitPrefix: v.String("rate_limit_prefix"),

		Timeouts: timeouts.Config{
			Ping:   v.Duration("timeout_ping", timeouts.DefaultPing),
			Short:  v.Duration("timeout_short", timeouts.DefaultShort),
			Medium: v.Duration("timeout_medium", timeouts.DefaultMedium),
			Submit: v.Duration("timeout_submit", timeouts.DefaultSubmit),
			Batch:  v.Duration("timeout_batch", timeouts.DefaultBatch),
		},

		Registration: gates.Window{
			Closed:   v.Bool("registration_closed"),
			OpensAt:  opensAt,
			ClosesAt: closesAt,
		},

		CollegeCacheTTL: v.Duration("college_cache_ttl", 5*time.Minute),
		CollegeSeedFile: strings.TrimSpace(v.String("college_seed_file")),
	}, nil
}

// parseTime reads an RFC 3339 time; blank is the zero time.
func parseTime(s string) (time.Time, error) {
	if s = strings.TrimSpace(s); s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// The Mongo URI, the Redis URL and the blob credentials are required in
// every environment; dev mode never substitutes an in-process counter
// store or a local blob directory.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.RedisURL == "" {
		return errors.New("redis_url is required")
	}
	if err := appCfg.Blob.Validate(); err != nil {
		return err
	}
	if appCfg.MaxDocumentBytes <= 0 {
		return errors.New("max_document_bytes must be positive")
	}
	for _, b := range ratelimit.Buckets {
		if p := appCfg.RateLimits[b]; p.Window <= 0 {
			return fmt.Errorf("rate limit %s: window must be positive", b)
		}
	}
	if w := appCfg.Registration; !w.OpensAt.IsZero() && !w.ClosesAt.IsZero() && !w.OpensAt.Before(w.ClosesAt) {
		return errors.New("registration_opens_at must be before registration_closes_at")
	}
	if len(appCfg.IPHashKey) > 64 {
		return errors.New("ip_hash_key must be at most 64 bytes")
	}
	if coreCfg.Env == "prod" {
		if appCfg.SessionKey == "" {
			return errors.New("session_key is required in prod")
		}
		if appCfg.IPHashKey == "" {
			return errors.New("ip_hash_key is required in prod")
		}
	}
	return nil
}
