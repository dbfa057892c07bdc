package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwlsn/vrsd/internal/api"
	"github.com/gwlsn/vrsd/internal/config"
	"github.com/gwlsn/vrsd/internal/eventlog"
	"github.com/gwlsn/vrsd/internal/ffmpeg"
	"github.com/gwlsn/vrsd/internal/ingest/extractor"
	"github.com/gwlsn/vrsd/internal/ingest/remote"
	"github.com/gwlsn/vrsd/internal/ingest/torrent"
	"github.com/gwlsn/vrsd/internal/ingest/upload"
	"github.com/gwlsn/vrsd/internal/janitor"
	"github.com/gwlsn/vrsd/internal/jobs"
	"github.com/gwlsn/vrsd/internal/logger"
	"github.com/gwlsn/vrsd/internal/rendition"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./config/vrsd.yaml)")
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			cfgPath = envPath
		} else {
			cfgPath = "config/vrsd.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("warning: could not load config from %s: %v", cfgPath, err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv(os.Getenv)

	logger.Init(cfg.LogLevel)

	logger.Info("starting vrsd",
		"bind_addr", cfg.BindAddr,
		"storage_root", cfg.StorageRoot,
		"encoder_override", cfg.EncoderOverride,
	)

	ffmpeg.DetectEncoders(cfg.FFmpegPath)
	best := ffmpeg.GetBestEncoder()
	logger.Info("encoder detection complete", "best", best.Accel, "name", best.Name)
	for _, enc := range ffmpeg.ListAvailableEncoders() {
		if enc.Available {
			logger.Info("encoder available", "accel", enc.Accel, "encoder", enc.Encoder)
		}
	}

	if err := os.MkdirAll(cfg.StorageRoot, 0755); err != nil {
		log.Fatalf("create storage root: %v", err)
	}
	if err := os.MkdirAll(cfg.IncomingDir(), 0755); err != nil {
		log.Fatalf("create incoming dir: %v", err)
	}

	eventLog, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		log.Fatalf("open event log: %v", err)
	}
	defer eventLog.Close()

	registry := jobs.NewRegistry()
	planner := ffmpeg.NewPlanner(cfg.FFmpegPath, cfg.FFprobePath, cfg.EncoderOverride, cfg.VAAPIDevice)

	handler := api.NewHandler(
		cfg,
		registry,
		planner,
		upload.New(),
		remote.New(cfg.AriaPath),
		torrent.New(cfg.AriaPath),
		extractor.New(cfg.ExtractorPath),
		rendition.New(cfg.FFmpegPath, cfg.TempRootForRenditions()),
		eventLog,
	)
	router := api.NewRouter(handler)

	janitorInterval, err := time.ParseDuration(cfg.JanitorInterval)
	if err != nil {
		logger.Warn("invalid janitor_interval, defaulting to 60s", "value", cfg.JanitorInterval)
		janitorInterval = 60 * time.Second
	}
	jan := janitor.New(janitor.Config{
		StorageRoot:  cfg.StorageRoot,
		TempRoots:    []string{cfg.RenditionDir("hls"), cfg.RenditionDir("dash")},
		Interval:     janitorInterval,
		MinFreeBytes: cfg.MinFreeBytes,
		MinFreeRatio: cfg.MinFreeRatio,
		BatchSize:    cfg.CleanupBatch,
	}, registry)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go jan.Run(janitorCtx)
	defer stopJanitor()

	server := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: router,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down")
		stopJanitor()
		server.Close()
	}()

	logger.Info("listening", "addr", cfg.BindAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	fmt.Println("goodbye")
}
