package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/api"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/auditlog"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/cache"
	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/graph"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/jobs"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/logging"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/reconstruct"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cockpit HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Log.Level,
		JSONFormat: cfg.Log.JSONFormat,
		OutputFile: cfg.Log.OutputFile,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Initialize(logCfg); err != nil {
		return err
	}
	slogger := logging.Get()

	// Audit log collaborator (required)
	auditStore, err := auditlog.NewPostgresStore(ctx, cfg.AuditLog.PostgresDSN)
	if err != nil {
		return apperrors.ExternalError(err, "audit log connection failed")
	}
	defer auditStore.Close()

	// Job-tracking store
	var jobStore jobs.Store
	switch cfg.Jobs.Type {
	case "postgres":
		jobStore, err = jobs.NewPostgresStore(cfg.Jobs.PostgresDSN, logger)
	default:
		jobStore, err = jobs.NewSQLiteStore(cfg.Jobs.SQLitePath, logger)
	}
	if err != nil {
		return apperrors.DatabaseError(err, "job store init failed").WithContext("type", cfg.Jobs.Type)
	}
	defer jobStore.Close()

	// Reconstruction payload cache
	var payloadCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		payloadCache, err = cache.NewRedisCache(ctx, cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis cache: %w", err)
		}
	case "bolt":
		payloadCache, err = cache.NewBoltCache(cfg.Cache.BoltPath)
		if err != nil {
			return fmt.Errorf("bolt cache: %w", err)
		}
	}
	if payloadCache != nil {
		defer payloadCache.Close()
	}

	// Live graph is optional: the comparison view degrades without it.
	var graphClient *graph.Client
	if cfg.Neo4j.Password != "" {
		graphClient, err = graph.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			slogger.Warn("live graph unavailable, comparison view disabled", "error", err)
			graphClient = nil
		} else {
			defer graphClient.Close(context.Background())
		}
	}

	service := reconstruct.NewService(auditStore, payloadCache, cfg.Cache.TTL, slogger)

	server := api.New(service, jobStore, graphReader(graphClient), slogger)
	server.AddHealthCheck("audit_log", auditStore)
	if graphClient != nil {
		server.AddHealthCheck("neo4j", graphClient)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(cfg.Server.RateLimit, cfg.Server.RateBurst),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slogger.Info("cockpit server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// graphReader keeps a nil *graph.Client from becoming a non-nil interface.
func graphReader(c *graph.Client) api.GraphReader {
	if c == nil {
		return nil
	}
	return c
}
