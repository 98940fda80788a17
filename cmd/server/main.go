package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arencloud/stackdeck/internal/api"
	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/config"
	"github.com/arencloud/stackdeck/internal/configstore"
	"github.com/arencloud/stackdeck/internal/db"
	"github.com/arencloud/stackdeck/internal/logging"
	"github.com/arencloud/stackdeck/internal/version"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init db", "error", err)
	}
	store, err := configstore.New(ctx, db.NewSlotStore(gdb), logger)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	httpClient := awshttp.NewBuildableClient().WithTimeout(cfg.UpstreamTimeout)
	r := api.Router(cfg, logger, store, api.WithClientOptions(awsclient.WithHTTPClient(httpClient)))

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0, // allow long-running uploads/downloads and event streams
		WriteTimeout:      0,
		MaxHeaderBytes:    1 << 20, // 1MB headers
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("server starting", "addr", srv.Addr, "version", version.Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", "error", err)
	}
	logger.Info("server stopped")
}
