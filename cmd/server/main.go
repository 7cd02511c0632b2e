package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xtding233/scale-backend/internal/app"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the server config file")
		configDir  = flag.String("config-dir", "", "scale type database directory (overrides config)")
		savePath   = flag.String("save", "", "save file holding tech progression (overrides config)")
		mode       = flag.String("mode", "", "game mode: SANDBOX, CAREER, SCIENCE_SANDBOX (overrides config)")
		httpAddr   = flag.String("http", "", "HTTP listen address (overrides config)")
		grpcAddr   = flag.String("grpc", "", "gRPC listen address (overrides config)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.ConfigDir, *configDir)
	override(&cfg.SavePath, *savePath)
	override(&cfg.Mode, *mode)
	override(&cfg.HTTPAddr, *httpAddr)
	override(&cfg.GRPCAddr, *grpcAddr)
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("init", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Start(ctx); err != nil {
		log.Error("start", "err", err)
		os.Exit(1)
	}
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
