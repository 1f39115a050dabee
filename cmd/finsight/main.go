package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"finsight/internal/api"
	"finsight/internal/cli"
	"finsight/internal/config"
	apphttp "finsight/internal/http"
	"finsight/internal/log"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	client, err := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           cfg.Addr(),
		Client:         client,
		Logger:         logger,
		SessionCookie:  cfg.SessionCookie,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
		PublicOrigin:   cfg.PublicOrigin,
	})
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	ctx, stop := cli.ShutdownContext()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting FinSight web server",
			log.FieldOperation, log.OpStartup,
			"addr", srv.Addr,
			"backend", cfg.BackendURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
