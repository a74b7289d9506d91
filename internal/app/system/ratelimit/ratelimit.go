// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Bucket names one category of rate-limited operation. Each bucket has its
// own quota, window and block duration.
type Bucket string

const (
	BucketSubmission      Bucket = "submission"       // team registration submissions
	BucketAccess          Bucket = "access"           // team-name availability reads
	BucketValidation      Bucket = "validation"       // step validation round-trips
	BucketCollegeCreation Bucket = "college_creation" // explicit directory additions
	BucketGeneral         Bucket = "general"          // everything else
)

// Buckets lists every bucket, in a stable order.
var Buckets = []Bucket{
	BucketSubmission,
	BucketAccess,
	BucketValidation,
	BucketCollegeCreation,
	BucketGeneral,
}

// Policy is a bucket's quota: Points per Window, and how long a caller
// stays blocked once the quota is exhausted (zero means only until the
// window resets).
type Policy struct {
	Points int
	Window time.Duration
	Block  time.Duration
}

// DefaultPolicies are the operational defaults; every value can be
// overridden per bucket from configuration.
func DefaultPolicies() map[Bucket]Policy {
	return map[Bucket]Policy{
		BucketSubmission:      {Points: 10, Window: time.Hour, Block: 30 * time.Minute},
		BucketAccess:          {Points: 60, Window: 10 * time.Minute, Block: 10 * time.Minute},
		BucketValidation:      {Points: 50, Window: 10 * time.Minute, Block: 10 * time.Minute},
		BucketCollegeCreation: {Points: 10, Window: time.Hour, Block: 30 * time.Minute},
		BucketGeneral:         {Points: 100, Window: 15 * time.Minute, Block: 15 * time.Minute},
	}
}

// Usage is a Store's view of one key after (or without) consuming a point.
type Usage struct {
	Consumed int           // points consumed in the current window
	ResetIn  time.Duration // until the window resets, or the block lifts
	Blocked  bool          // caller is inside a block period
}

// Store is the external counter backend. Implementations must make Consume
// atomic across concurrent callers and processes.
type Store interface {
	Consume(ctx context.Context, key string, p Policy) (Usage, error)
	Peek(ctx context.Context, key string) (Usage, error)
	Reset(ctx context.Context, key string) error
}

// Decision is the outcome of a gate check.
type Decision struct {
	Bucket     Bucket
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1
// for a denied decision.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if !d.Allowed && secs < 1 {
		secs = 1
	}
	return secs
}

var (
	// ErrUnknownBucket is returned for a bucket with no configured policy.
	ErrUnknownBucket = errors.New("ratelimit: unknown bucket")
	// ErrUnavailable means the counter store could not be consulted and
	// the gate is failing closed.
	ErrUnavailable = errors.New("ratelimit: counter store unavailable")
	// ErrResetForbidden is returned by Reset outside development mode.
	ErrResetForbidden = errors.New("ratelimit: reset is not allowed in production")
)

// Gate consumes points from named buckets on behalf of caller IPs.
// It is safe for concurrent use.
type Gate struct {
	store    Store
	policies map[Bucket]Policy
	prefix   string
	dev      bool
	log      *zap.Logger
	now      func() time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithDevMode makes the gate fail open when the store errors and allows
// Reset. Production gates fail closed.
func WithDevMode(dev bool) Option { return func(g *Gate) { g.dev = dev } }

// WithKeyPrefix namespaces store keys (default "hackreg_rl:").
func WithKeyPrefix(prefix string) Option { return func(g *Gate) { g.prefix = prefix } }

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option { return func(g *Gate) { g.log = l } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

// NewGate creates a gate over store with one policy per bucket.
func NewGate(store Store, policies map[Bucket]Policy, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		policies: make(map[Bucket]Policy, len(policies)),
		prefix:   "hackreg_rl:",
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for b, p := range policies {
		g.policies[b] = p
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// DevMode reports whether the gate runs in development mode.
func (g *Gate) DevMode() bool { return g.dev }

// Policy returns the policy configured for b.
func (g *Gate) Policy(b Bucket) (Policy, bool) {
	p, ok := g.policies[b]
	return p, ok
}

func (g *Gate) key(b Bucket, ip string) string {
	return g.prefix + string(b) + ":" + ip
}

// Consume takes one point from bucket b for ip.
//
// A store failure yields ErrUnavailable in production. In development mode
// the failure is logged and the request is allowed.
func (g *Gate) Consume(ctx context.Context, b Bucket, ip string) (Decision, error) {
	p, ok := g.policies[b]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownBucket, b)
	}

	u, err := g.store.Consume(ctx, g.key(b, ip), p)
	if err != nil {
		if g.dev {
			g.log.Warn("rate limit store failed; allowing request in dev mode",
				zap.String("bucket", string(b)), zap.Error(err))
			return Decision{Bucket: b, Allowed: true, Limit: p.Points, Remaining: p.Points}, nil
		}
		g.log.Error("rate limit store failed; denying request",
			zap.String("bucket", string(b)), zap.Error(err))
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	d := g.decide(b, p, u)
	if !d.Allowed {
		g.log.Info("rate limit exceeded",
			zap.String("bucket", string(b)),
			zap.String("ip", ip),
			zap.Int("retry_after_s", d.RetryAfterSeconds()))
	}
	return d, nil
}

// Peek reports the bucket state for ip without consuming a point. Store
// failures are returned as ErrUnavailable regardless of mode.
func (g *Gate) Peek(ctx context.Context, b Bucket, ip string) (Decision, error) {
	p, ok := g.policies[b]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownBucket, b)
	}
	u, err := g.store.Peek(ctx, g.key(b, ip))
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	d := g.decide(b, p, u)
	// Peeking at an exhausted-but-unblocked window is still "allowed" until
	// the next consume tips it over.
	if !u.Blocked && u.Consumed <= p.Points {
		d.Allowed = true
	}
	return d, nil
}

// Reset clears bucket b for ip. Only permitted in development mode.
func (g *Gate) Reset(ctx context.Context, b Bucket, ip string) error {
	if !g.dev {
		return ErrResetForbidden
	}
	return g.ForceReset(ctx, b, ip)
}

// ForceReset clears bucket b for ip in any mode. It backs operator
// tooling with direct access to the store; HTTP handlers use Reset.
func (g *Gate) ForceReset(ctx context.Context, b Bucket, ip string) error {
	if _, ok := g.policies[b]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBucket, b)
	}
	return g.store.Reset(ctx, g.key(b, ip))
}

func (g *Gate) decide(b Bucket, p Policy, u Usage) Decision {
	now := g.now()
	d := Decision{
		Bucket:  b,
		Limit:   p.Points,
		ResetAt: now.Add(u.ResetIn),
	}
	if u.Blocked || u.Consumed > p.Points {
		d.Allowed = false
		d.Remaining = 0
		d.RetryAfter = u.ResetIn
		return d
	}
	d.Allowed = true
	d.Remaining = p.Points - u.Consumed
	return d
}
