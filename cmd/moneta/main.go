package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"moneta/internal/cli"
	apphttp "moneta/internal/http"
	applog "moneta/internal/log"
)

func main() {
	logger, cfg := cli.MustInit(applog.ComponentApp)

	res, err := cli.InitBackend(context.Background(), logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var proxies []string
	if v := strings.TrimSpace(os.Getenv("TRUSTED_PROXIES")); v != "" {
		proxies = strings.Split(v, ",")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:         res.Ledger,
		Reports:        res.Reports,
		Ready:          res.Store.Ping,
		Logger:         logger.WithComponent(applog.ComponentHTTP),
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: proxies,
	})
	srv.MaxHeaderBytes = 1 << 16

	_, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting moneta server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil,
		"propagate_chain", cfg.LedgerPropagateChain)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		stop()
		<-done
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
