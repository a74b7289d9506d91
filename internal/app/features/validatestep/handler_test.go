package validatestep_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/hackreg/internal/app/features/validatestep"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/stepval"
	"github.com/dalemusser/hackreg/internal/testutil"
	"go.uber.org/zap"
)

func newRouter(policy ratelimit.Policy) http.Handler {
	policies := ratelimit.DefaultPolicies()
	policies[ratelimit.BucketValidation] = policy
	gate := ratelimit.NewGate(ratelimit.NewMemoryStore(nil), policies)
	h := validatestep.NewHandler(stepval.New(nil, zap.NewNop()), zap.NewNop())
	return validatestep.Routes(h, gate)
}

func TestServe(t *testing.T) {
	r := newRouter(ratelimit.DefaultPolicies()[ratelimit.BucketValidation])

	tests := []struct {
		name     string
		body     any
		contains string
	}{
		{"valid team info", map[string]any{"step": 0, "teamName": "A", "teamSize": 2}, `"valid":true`},
		{"missing team name", map[string]any{"step": 0, "teamSize": 2}, "Team name is required"},
		{"unknown step", map[string]any{"step": 9}, "Invalid step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", tt.body))
			rec.AssertStatus(t, http.StatusOK)
			rec.AssertContains(t, tt.contains)
		})
	}
}

func TestServe_BadBody(t *testing.T) {
	r := newRouter(ratelimit.DefaultPolicies()[ratelimit.BucketValidation])
	req := httptest.NewRequest("POST", "/", strings.NewReader("not json"))
	req.RemoteAddr = testutil.TestIP + ":1"
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, `"valid":false`)
}

func TestServe_RateLimited(t *testing.T) {
	r := newRouter(ratelimit.Policy{Points: 1, Window: time.Minute, Block: time.Minute})
	body := map[string]any{"step": 3, "ideaTitle": "x"}

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", body))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest("POST", "/", body))
	rec.AssertStatus(t, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}
