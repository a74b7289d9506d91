package bootstrap

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
)

func TestBuildHandler_MountsFeatures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db, Redis: rdb}
	appCfg := validConfig()
	appCfg.CORSAllowedOrigins = []string{"https://register.example"}

	h, err := BuildHandler(&config.CoreConfig{Env: "prod"}, appCfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/colleges", http.StatusOK},
		{http.MethodGet, "/registrations", http.StatusBadRequest},
		{http.MethodGet, "/registrations?team_name=Nobody", http.StatusOK},
		{http.MethodGet, "/click-stats", http.StatusOK},
		{http.MethodGet, "/debug/rate-limit", http.StatusOK},
		{http.MethodPost, "/debug/rate-limit", http.StatusForbidden},
		{http.MethodGet, "/wizard", http.StatusOK},
	}
	for _, tt := range tests {
		req := testutil.NewRequest(tt.method, tt.target)
		rec := testutil.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s %s: status %d, want %d (body %s)", tt.method, tt.target, rec.Code, tt.want, rec.Body.String())
		}
	}
}

func TestBuildHandler_CORSPreflight(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	appCfg := validConfig()
	appCfg.CORSAllowedOrigins = []string{"https://register.example"}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, appCfg,
		DBDeps{MongoClient: db.Client(), MongoDatabase: db, Redis: rdb}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	req := testutil.NewRequest(http.MethodOptions, "/registrations")
	req.Header.Set("Origin", "https://register.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://register.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
}

func TestBuildHandler_RateLimitsShareRedis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	appCfg := validConfig()
	appCfg.RateLimits[ratelimit.BucketGeneral] = ratelimit.Policy{Points: 1, Window: time.Minute}
	h, err := BuildHandler(&config.CoreConfig{Env: "prod"}, appCfg,
		DBDeps{MongoClient: db.Client(), MongoDatabase: db, Redis: rdb}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	codes := make([]int, 2)
	for i := range codes {
		rec := testutil.NewRecorder()
		h.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/colleges"))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected 200 then 429, got %v", codes)
	}
}

func TestBuildHandler_ProxiedClientsGetOwnBuckets(t *testing.T) {
	db := testutil.SetupTestDB(t)

	tests := []struct {
		name       string
		trustProxy bool
		want       []int
	}{
		{"trusted proxy", true, []int{http.StatusOK, http.StatusOK}},
		{"direct connections", false, []int{http.StatusOK, http.StatusTooManyRequests}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })

			appCfg := validConfig()
			appCfg.TrustProxy = tt.trustProxy
			appCfg.RateLimits[ratelimit.BucketGeneral] = ratelimit.Policy{Points: 1, Window: time.Minute}
			h, err := BuildHandler(&config.CoreConfig{Env: "prod"}, appCfg,
				DBDeps{MongoClient: db.Client(), MongoDatabase: db, Redis: rdb}, testLogger())
			if err != nil {
				t.Fatalf("BuildHandler: %v", err)
			}

			for i, client := range []string{"203.0.113.21", "203.0.113.22"} {
				req := testutil.NewRequest(http.MethodGet, "/colleges")
				req.RemoteAddr = "10.0.0.5:443"
				req.Header.Set("X-Forwarded-For", client)
				rec := testutil.NewRecorder()
				h.ServeHTTP(rec, req)
				if rec.Code != tt.want[i] {
					t.Errorf("client %s: status %d, want %d", client, rec.Code, tt.want[i])
				}
			}
		})
	}
}

func TestBuildHandler_ClosedRegistrationRefusesSubmissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	appCfg := validConfig()
	appCfg.Registration.Closed = true
	h, err := BuildHandler(&config.CoreConfig{Env: "prod"}, appCfg,
		DBDeps{MongoClient: db.Client(), MongoDatabase: db, Redis: rdb}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodPost, "/registrations", http.StatusForbidden},
		{http.MethodPost, "/wizard/submit", http.StatusForbidden},
		{http.MethodGet, "/registrations?team_name=Open", http.StatusOK},
		{http.MethodGet, "/wizard", http.StatusOK},
	}
	for _, tt := range tests {
		rec := testutil.NewRecorder()
		h.ServeHTTP(rec, testutil.NewRequest(tt.method, tt.target))
		if rec.Code != tt.want {
			t.Errorf("%s %s: status %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}
}
