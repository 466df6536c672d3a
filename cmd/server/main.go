package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/scraper/cvbankas"
	"go-cvbankas-scraper/internal/server"
	"go-cvbankas-scraper/utils"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	//load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		utils.NewLogger(os.Stderr, slog.LevelInfo).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := utils.NewLogger(os.Stdout, level)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	launcher, err := browser.NewLauncher(cfg.Browser, logger)
	if err != nil {
		logger.Error("failed to set up browser", "error", err)
		os.Exit(1)
	}

	s, err := cvbankas.NewCVBankasScraper(cfg, launcher, logger)
	if err != nil {
		logger.Error("invalid extraction rules", "error", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg.Server, server.NewScrapeHandler(s, logger), logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("🚀 CVBankas scraper API starting", "port", cfg.Server.Port, "driver", cfg.Browser.Driver)
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Stopping server...")

	//graceful shutdown, in-flight scrapes get the shutdown timeout to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}
	logger.Info("👋 Server stopped")
}
