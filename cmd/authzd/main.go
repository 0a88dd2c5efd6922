// authzd serves authorization decisions over HTTP. It wires role
// capabilities, direct grants, ownership, the decision cache, and the
// audit trail behind a small JSON API, with optional PostgreSQL
// persistence and prometheus metrics.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/stdr"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	authz "github.com/neuralliquid/autopr-engine-sub002"
	"github.com/neuralliquid/autopr-engine-sub002/persist/gormstore"
	"github.com/neuralliquid/autopr-engine-sub002/rolefile"
)

var (
	addr        = pflag.String("addr", ":8080", "listen address")
	rolesFile   = pflag.String("roles-file", "", "YAML file defining role capabilities, builtin roles when unset")
	cacheTTL    = pflag.Duration("cache-ttl", 5*time.Minute, "how long cached decisions stay valid")
	noCache     = pflag.Bool("no-cache", false, "disable the decision cache")
	noAudit     = pflag.Bool("no-audit", false, "disable the audit trail")
	auditLog    = pflag.String("audit-log", "", "append audit records to this JSON lines file")
	postgresDSN = pflag.String("postgres-dsn", "", "PostgreSQL DSN for durable grants and audit records")
	metricsOn   = pflag.Bool("metrics", false, "expose prometheus metrics on /metrics")
	verbosity   = pflag.Int("v", 0, "log verbosity")
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	pflag.Parse()

	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile))

	roles := authz.BuiltinRoles()
	if *rolesFile != "" {
		var err error
		if roles, err = rolefile.Load(*rolesFile); err != nil {
			log.Fatalf("Failed to load roles: %v", err)
		}
		log.Printf("Loaded %d roles from %s", len(roles), *rolesFile)
	}

	opts := []authz.Option{
		authz.WithLogger(logger),
		authz.WithRoles(roles),
	}
	if *noCache {
		opts = append(opts, authz.WithoutCache())
	} else {
		opts = append(opts, authz.WithCacheTTL(*cacheTTL))
	}
	if *noAudit {
		opts = append(opts, authz.WithoutAudit())
	}
	if *auditLog != "" {
		opts = append(opts, authz.WithAuditLogFile(*auditLog))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *postgresDSN != "" {
		store, err := gormstore.Open(*postgresDSN, gormstore.WithLogger(logger.WithName("gormstore")))
		if err != nil {
			log.Fatalf("Failed to open postgres store: %v", err)
		}
		defer store.Close()

		opts = append(opts, authz.WithGrantPersister(store))
		if !*noAudit {
			opts = append(opts, authz.WithAuditSink(store.AuditSink()))
		}
		log.Println("Postgres persistence enabled")
	}

	var registry *prometheus.Registry
	if *metricsOn {
		registry = prometheus.NewRegistry()
		opts = append(opts, authz.WithMetrics(registry))
	}

	manager, err := authz.Init(ctx, opts...)
	if err != nil {
		log.Fatalf("Failed to build authorization manager: %v", err)
	}

	e := newServer(manager, roles, registry)

	go func() {
		log.Printf("authzd listening on %s", *addr)
		if err := e.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// stops the audit worker and persister watch, then leaves the
	// worker a moment to flush queued records
	cancel()
	time.Sleep(200 * time.Millisecond)

	log.Println("Server exited gracefully")
}
