// Package authz layers an access-control engine from role capabilities,
// resource ownership, direct grants, a TTL decision cache, and an
// append-only audit trail.
package authz

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neuralliquid/autopr-engine-sub002/internal/audit"
	"github.com/neuralliquid/autopr-engine-sub002/internal/cache"
	"github.com/neuralliquid/autopr-engine-sub002/internal/manager"
	"github.com/neuralliquid/autopr-engine-sub002/internal/metrics"
	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// New creates an authorization Manager.
// Decisions consult, in order: resource ownership, role capabilities,
// direct grants, and explicit permissions asserted on the request.
// The decision cache and the audit trail are on unless turned off;
// background workers stop when ctx is canceled.
func New(ctx context.Context, opts ...Option) (types.Manager, error) {
	cfg := &Config{
		cache:    true,
		cacheTTL: cache.DefaultTTL,
		audit:    true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.log.GetSink() == nil {
		cfg.log = stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile))
	}
	if cfg.roles == nil {
		cfg.roles = BuiltinRoles()
	}

	var set *metrics.Set
	if cfg.registry != nil {
		var e error
		set, e = metrics.New(cfg.registry)
		if e != nil {
			return nil, fmt.Errorf("register metrics failed: %w", e)
		}
	}

	m := manager.NewEngine(cfg.roles, cfg.log.WithName("engine"))

	if cfg.cache {
		c := cfg.decisions
		if c == nil {
			c = cache.New(cfg.cacheTTL)
		}
		m = manager.NewCached(m, c, cfg.log.WithName("cache"), set)
	}

	m = manager.NewSynced(m)

	if cfg.persister != nil {
		var e error
		m, e = manager.NewPersisted(ctx, m, cfg.persister, cfg.log.WithName("persisted"))
		if e != nil {
			return nil, fmt.Errorf("init persisted manager failed: %w", e)
		}
	}

	if set != nil {
		m = manager.NewInstrumented(m, set)
	}

	if cfg.audit {
		auditOpts := make([]audit.Option, 0, len(cfg.auditSinks)+3)
		if cfg.auditFile != "" {
			sink, e := audit.NewFileSink(cfg.auditFile)
			if e != nil {
				return nil, fmt.Errorf("open audit log file failed: %w", e)
			}
			auditOpts = append(auditOpts, audit.WithSink(sink))
		}
		for _, sink := range cfg.auditSinks {
			auditOpts = append(auditOpts, audit.WithSink(sink))
		}
		if cfg.auditBuffer > 0 {
			auditOpts = append(auditOpts, audit.WithBuffer(cfg.auditBuffer))
		}
		if set != nil {
			auditOpts = append(auditOpts, audit.OnDrop(set.IncAuditDropped))
		}
		m = manager.NewAudited(m, audit.New(ctx, cfg.log.WithName("audit"), auditOpts...))
	}

	for _, seed := range cfg.owners {
		if e := m.SetOwner(seed.res, seed.user); e != nil {
			return nil, fmt.Errorf("seed owner of %s failed: %w", seed.res, e)
		}
	}

	return m, nil
}

// WithLogger sets logger for all components
func WithLogger(l logr.Logger) Option {
	return func(cfg *Config) {
		cfg.log = l
	}
}

// WithRoles replaces the builtin role capability table
func WithRoles(roles types.RoleCapabilities) Option {
	return func(cfg *Config) {
		cfg.roles = roles
	}
}

// WithCacheTTL sets how long cached decisions stay valid
func WithCacheTTL(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.cacheTTL = d
		}
	}
}

// WithoutCache turns the decision cache off,
// every check then reaches the decision engine
func WithoutCache() Option {
	return func(cfg *Config) {
		cfg.cache = false
	}
}

// WithDecisionCache plugs in a caller-provided decision cache
// instead of the builtin TTL map
func WithDecisionCache(c types.DecisionCache) Option {
	return func(cfg *Config) {
		cfg.cache = true
		cfg.decisions = c
	}
}

// WithoutAudit turns the audit trail off
func WithoutAudit() Option {
	return func(cfg *Config) {
		cfg.audit = false
	}
}

// WithAuditLogFile appends audit records to a JSON lines file,
// parent directories are created as needed
func WithAuditLogFile(path string) Option {
	return func(cfg *Config) {
		cfg.auditFile = path
	}
}

// WithAuditSink adds a sink receiving every audit record,
// may be given multiple times
func WithAuditSink(s types.RecordSink) Option {
	return func(cfg *Config) {
		cfg.auditSinks = append(cfg.auditSinks, s)
	}
}

// WithAuditBuffer sets the audit queue length,
// records beyond it are dropped and counted rather than blocking callers
func WithAuditBuffer(n int) Option {
	return func(cfg *Config) {
		cfg.auditBuffer = n
	}
}

// WithGrantPersister sets Persister for direct grants.
// All grants will be lost after restart if not set.
func WithGrantPersister(p types.GrantPersister) Option {
	return func(cfg *Config) {
		cfg.persister = p
	}
}

// WithMetrics registers decision, cache, and audit metrics
// with the given registerer
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *Config) {
		cfg.registry = reg
	}
}

// WithOwner seeds resource ownership on construction
func WithOwner(res types.Resource, userID string) Option {
	return func(cfg *Config) {
		cfg.owners = append(cfg.owners, ownerSeed{res: res, user: userID})
	}
}

type ownerSeed struct {
	res  types.Resource
	user string
}

// Config works together with Option to control the initialization of a Manager
type Config struct {
	log         logr.Logger
	roles       types.RoleCapabilities
	cache       bool
	cacheTTL    time.Duration
	decisions   types.DecisionCache
	audit       bool
	auditFile   string
	auditSinks  []types.RecordSink
	auditBuffer int
	persister   types.GrantPersister
	registry    prometheus.Registerer
	owners      []ownerSeed
}

// Option controls how to init a Manager
type Option func(*Config)
