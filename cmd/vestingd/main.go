// Vesting Manager Daemon
//
// This daemon provides:
// - REST API for schedule creation, claims, and admin operations
// - A live websocket feed of manager events
// - Rate limiting on the public API
// - SQLite-backed durable state
// - Prometheus metrics and structured logging
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beans-labs/vesting-manager/internal/logger"
	"github.com/beans-labs/vesting-manager/pkg/api"
	"github.com/beans-labs/vesting-manager/pkg/config"
	"github.com/beans-labs/vesting-manager/pkg/metrics"
	"github.com/beans-labs/vesting-manager/pkg/ratelimit"
	"github.com/beans-labs/vesting-manager/pkg/storage"
	"github.com/beans-labs/vesting-manager/pkg/token"
	"github.com/beans-labs/vesting-manager/pkg/vesting"

	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "vestingd",
	Short: "Vesting manager daemon",
	Long: `vestingd - single-token vesting manager daemon.

Provides a REST API and websocket event feed over a SQLite-backed
vesting manager: schedule creation, claims, revocation, and admin
withdrawal, gated by admin/recipient authorization and guarded by a
per-caller rate limiter.`,
	Run: runDaemon,
}

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) {
	log := logger.NewLogger(logLevel)
	log.WithFields(logger.Fields{
		"version":    Version,
		"git_commit": GitCommit,
	}).Info("starting vesting manager daemon")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	log.WithFields(logger.Fields{
		"api_port":           cfg.API.Port,
		"metrics_port":       cfg.Metrics.Port,
		"storage_path":       cfg.Storage.Path,
		"rate_limit_enabled": cfg.RateLimiter.Enabled,
	}).Info("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Metrics exporter
	metricsExporter := metrics.NewExporter(cfg.Metrics.Port)
	metricsExporter.Start()
	log.WithField("port", cfg.Metrics.Port).Info("metrics server started")

	// 2. Rate limiter
	rateLimiter := ratelimit.New(cfg.RateLimiter)
	log.Info("rate limiter initialized")

	// 3. Durable state (SQLite)
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer db.Close()
	log.WithField("path", cfg.Storage.Path).Info("storage initialized")

	// 4. Token ledger. A production deployment points this at a real
	// token service; the in-memory ledger here is a standalone-mode
	// default so the daemon is runnable without one. otherTokens backs
	// withdraw_other_token for any token address besides the managed one.
	ledger := token.NewMemoryLedger()
	otherTokens := token.NewRegistry()

	// 5. Event hub (websocket feed) and metrics sink (Prometheus
	// counters/gauge), fanned out to from a single MultiEventBus so the
	// manager only ever publishes once per operation.
	hub := api.NewHub(log)
	metricsSink := metricsExporter.EventSink(db.Reserved)
	bus := vesting.MultiEventBus{hub, metricsSink}

	clock := systemClock{}
	mgr := vesting.New(db, ledger, clock, bus, log)

	initialized, err := db.Initialized()
	if err != nil {
		log.WithError(err).Fatal("failed to check initialization state")
	}
	if !initialized {
		if err := mgr.Init(ctx, vesting.Address(cfg.Admin.FactoryCaller), cfg.Admin.TokenAddress); err != nil {
			log.WithError(err).Fatal("failed to initialize manager")
		}
		log.WithField("factory_caller", cfg.Admin.FactoryCaller).Info("manager initialized")
	}

	// 6. HTTP API server
	secret := apiSecret()
	apiServer := api.New(mgr, rateLimiter, hub, otherTokens, metricsExporter, secret, log, cfg.API.Port)
	apiServer.Start()
	log.WithField("port", cfg.API.Port).Info("API server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("vesting manager daemon is running, press Ctrl+C to stop")
	<-sigCh
	log.Info("received shutdown signal, stopping daemon")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownGrace())
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown error")
	}
	if err := metricsExporter.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("metrics server shutdown error")
	}

	log.Info("daemon stopped gracefully")
}

// systemClock implements vesting.Clock against the wall clock.
type systemClock struct{}

func (systemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// apiSecret loads the HMAC key callers must sign requests with from
// the environment, generating an ephemeral one with a loud warning if
// unset, so a bare `vestingd` run is usable for local testing without
// silently running unauthenticated.
func apiSecret() []byte {
	if s := os.Getenv("VESTING_API_SECRET"); s != "" {
		return []byte(s)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate ephemeral API secret: %v", err))
	}
	fmt.Fprintf(os.Stderr, "WARNING: VESTING_API_SECRET not set, generated ephemeral secret %s (callers will need this to sign requests)\n", hex.EncodeToString(buf))
	return buf
}
