// Copyright 2025 Multisig Orchestrator

// Multisig orchestrator: coordinates off-chain threshold-signature
// collection for multi-signer accounts, then composes, submits, and tracks
// the notarized transaction executing on their behalf.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xstelea/multisig/pkg/collector"
	"github.com/xstelea/multisig/pkg/composer"
	"github.com/xstelea/multisig/pkg/config"
	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/gateway"
	"github.com/xstelea/multisig/pkg/monitor"
	"github.com/xstelea/multisig/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// Database
	dbClient, err := database.NewClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer dbClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dbClient.MigrateUp(ctx); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	repos := database.NewRepositories(dbClient)

	// Ledger gateway
	gatewayClient := gateway.NewClient(cfg.GatewayURL)
	log.Printf("Using gateway %s (network %d)", cfg.GatewayURL, cfg.NetworkID)

	// Core services
	sigCollector := collector.New(repos.Proposals, repos.Signatures)
	txComposer, err := composer.New(cfg.NetworkID, cfg.FeePayerPrivateKeyHex)
	if err != nil {
		log.Fatal("Failed to initialize composer:", err)
	}
	log.Printf("Fee payer account: %s", txComposer.FeePayerAccount())

	// Validity monitor
	validityMonitor := monitor.New(repos.Proposals, repos.Signatures, gatewayClient, cfg.MonitorInterval())
	if err := validityMonitor.Start(); err != nil {
		log.Fatal("Failed to start validity monitor:", err)
	}
	defer validityMonitor.Stop()

	// HTTP API
	apiServer := server.New(repos.Proposals, repos.Signatures, gatewayClient, sigCollector, txComposer, dbClient, cfg.NetworkID, cfg.FrontendOrigin)

	rootMux := http.NewServeMux()
	rootMux.Handle("/metrics", promhttp.Handler())
	rootMux.Handle("/", apiServer.Handler())

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: rootMux,
	}

	go func() {
		log.Printf("Multisig orchestrator API listening on %s", cfg.ListenAddr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server:", err)
		}
	}()

	// Optional separate metrics listener for deployments that keep metrics
	// off the public port.
	if cfg.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		go func() {
			metricsAddr := fmt.Sprintf(":%d", cfg.MetricsPort)
			log.Printf("Metrics listening on %s", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Multisig orchestrator stopped")
}
