package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lendnet/config"
	"lendnet/core/events"
	"lendnet/core/ledger"
	"lendnet/observability/logging"
	"lendnet/observability/metrics"
	"lendnet/rpc"
	"lendnet/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("lendnetd", cfg.Environment)

	admin, err := cfg.AdminAddress()
	if err != nil {
		logger.Error("Invalid genesis admin", "error", err)
		os.Exit(1)
	}
	loanParams, err := cfg.LoanParameters()
	if err != nil {
		logger.Error("Invalid loan parameters", "error", err)
		os.Exit(1)
	}
	minDeposit, err := cfg.MinDeposit()
	if err != nil {
		logger.Error("Invalid pool configuration", "error", err)
		os.Exit(1)
	}
	secret, err := cfg.JWTSecret()
	if err != nil {
		logger.Error("JWT secret unavailable", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	l, err := ledger.New(db, ledger.Options{
		LoanParameters: loanParams,
		Pool: ledger.PoolOptions{
			MinDeposit:       minDeposit,
			ReserveFactorBps: cfg.Pool.ReserveFactorBps,
			RateModel:        cfg.RateModel(),
		},
		Emitter:      metrics.NewCountingEmitter(events.NoopEmitter{}),
		Logger:       logger,
		GenesisAdmin: admin,
	})
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}

	server, err := rpc.NewServer(l, rpc.Options{
		JWTSecret:         []byte(secret),
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("Failed to build RPC server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("Failed to listen", "address", cfg.ListenAddress, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("RPC server listening", "address", listener.Addr().String(), "env", cfg.Environment)
		if serveErr := httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("Serve failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
