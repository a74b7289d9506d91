// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/gates"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for hackreg.
//
// These values come from environment variables (HACKREG_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// keeps the framework-level settings: ports, TLS, log level, environment.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis backs the rate-limit counters in every environment.
	RedisURL string

	// Blob storage for idea documents (S3, R2 or MinIO).
	Blob blobstore.Config

	// Wizard session cookie signing key. Blank in dev generates one per process.
	SessionKey string

	// Origins allowed to call the API from a browser.
	CORSAllowedOrigins []string

	MaxDocumentBytes int64
	UploadTempDir    string

	// Key for hashing caller IPs on click events.
	IPHashKey string

	// Take the caller IP from proxy headers (X-Forwarded-For, X-Real-IP)
	// instead of the TCP peer. Disable when clients connect directly.
	TrustProxy bool

	// Per-bucket rate-limit policies, and the Redis key prefix that keeps
	// deployments sharing one Redis apart.
	RateLimits      map[ratelimit.Bucket]ratelimit.Policy
	RateLimitPrefix string

	Timeouts timeouts.Config

	// When submissions are accepted.
	Registration gates.Window

	// College directory cache lifetime.
	CollegeCacheTTL time.Duration

	// Optional YAML file of colleges imported at startup.
	CollegeSeedFile string
}
