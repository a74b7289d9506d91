// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	clicksfeature "github.com/dalemusser/hackreg/internal/app/features/clicks"
	collegesfeature "github.com/dalemusser/hackreg/internal/app/features/colleges"
	healthfeature "github.com/dalemusser/hackreg/internal/app/features/health"
	ratelimitdebugfeature "github.com/dalemusser/hackreg/internal/app/features/ratelimitdebug"
	registrationsfeature "github.com/dalemusser/hackreg/internal/app/features/registrations"
	validatestepfeature "github.com/dalemusser/hackreg/internal/app/features/validatestep"
	wizardfeature "github.com/dalemusser/hackreg/internal/app/features/wizard"
	clickstore "github.com/dalemusser/hackreg/internal/app/store/clicks"
	collegestore "github.com/dalemusser/hackreg/internal/app/store/colleges"
	registrationstore "github.com/dalemusser/hackreg/internal/app/store/registrations"
	"github.com/dalemusser/hackreg/internal/app/system/gates"
	"github.com/dalemusser/hackreg/internal/app/system/iphash"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/stepval"
	"github.com/dalemusser/hackreg/internal/app/system/submission"
	"github.com/dalemusser/hackreg/internal/app/system/wizardsession"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls this after configuration, backends, schema setup and
// Startup have completed. Every feature shares one rate-limit gate over
// Redis; dev mode only changes how the gate resolves caller IPs and
// whether it fails open.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	dev := coreCfg.Env == "dev"

	gateOpts := []ratelimit.Option{ratelimit.WithDevMode(dev), ratelimit.WithLogger(logger)}
	if appCfg.RateLimitPrefix != "" {
		gateOpts = append(gateOpts, ratelimit.WithKeyPrefix(appCfg.RateLimitPrefix))
	}
	gate := ratelimit.NewGate(ratelimit.NewRedisStore(deps.Redis), appCfg.RateLimits, gateOpts...)

	colleges := collegestore.NewCached(collegestore.New(deps.MongoDatabase), appCfg.CollegeCacheTTL)
	steps := stepval.New(colleges, logger)

	orch := submission.New(gate, registrationstore.New(deps.MongoDatabase), deps.Blobs,
		submission.WithMaxDocumentBytes(appCfg.MaxDocumentBytes),
		submission.WithTempDir(appCfg.UploadTempDir),
		submission.WithLogger(logger))

	hasher, err := newIPHasher(appCfg.IPHashKey, logger)
	if err != nil {
		return nil, err
	}

	sessionKey := appCfg.SessionKey
	if sessionKey == "" {
		logger.Warn("session_key not set; generated a per-process wizard session key")
		sessionKey = wizardsession.DevKey()
	}
	sessions, err := wizardsession.New(sessionKey, !dev, logger)
	if err != nil {
		logger.Error("wizard session store init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if appCfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	registrationOpen := gates.RequireOpen(appCfg.Registration, nil)

	regHandler := registrationsfeature.NewHandler(orch, dev, logger)
	r.Mount("/registrations", registrationsfeature.Routes(regHandler, registrationOpen))

	stepHandler := validatestepfeature.NewHandler(steps, logger)
	r.Mount("/validate-step", validatestepfeature.Routes(stepHandler, gate))

	collegeHandler := collegesfeature.NewHandler(colleges, logger)
	r.Mount("/colleges", collegesfeature.Routes(collegeHandler, gate))

	clickHandler := clicksfeature.NewHandler(clickstore.New(deps.MongoDatabase), hasher, dev, logger)
	clicksfeature.Routes(r, clickHandler, gate)

	debugHandler := ratelimitdebugfeature.NewHandler(gate, coreCfg.Env, logger)
	r.Mount("/debug/rate-limit", ratelimitdebugfeature.Routes(debugHandler))

	wizardHandler := wizardfeature.NewHandler(sessions, steps, orch, gate, logger)
	r.Mount("/wizard", wizardfeature.Routes(wizardHandler, registrationOpen))

	return r, nil
}

// newIPHasher keys click-event IP hashes. Without a configured key (dev
// only; ValidateConfig requires one in prod) hashes are stable for the
// life of the process.
func newIPHasher(key string, logger *zap.Logger) (*iphash.Hasher, error) {
	k := []byte(key)
	if key == "" {
		logger.Warn("ip_hash_key not set; generated a per-process key")
		k = securecookie.GenerateRandomKey(32)
	}
	h, err := iphash.New(k)
	if err != nil {
		return nil, fmt.Errorf("ip hasher: %w", err)
	}
	return h, nil
}
