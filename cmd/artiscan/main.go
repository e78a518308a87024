package main

import (
	"context"
	"database/sql"
	"image"
	"log"
	"os"

	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lmittmann/tint"

	"artiscan/internal/capture"
	"artiscan/internal/config"
	"artiscan/internal/database"
	"artiscan/internal/input"
	"artiscan/internal/interrupt"
	"artiscan/internal/layout"
	"artiscan/internal/ocr"
	"artiscan/internal/scanner"
	"artiscan/internal/store"
)

func main() {
	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)

	logger.Info("🚀 artiscan starting")

	// The model is required before anything else: scanning cannot run
	// without it.
	model, err := ocr.Load(cfg.Model.WeightsPath, cfg.Model.AlphabetPath)
	if err != nil {
		logger.Error("model load failed", "err", err)
		os.Exit(1)
	}

	screen, err := capture.NewScreenAdapter()
	if err != nil {
		logger.Error("screen capture unavailable", "err", err)
		os.Exit(1)
	}
	res := screen.Resolution()
	if w, h, ok, err := cfg.ParseResolution(); err != nil {
		logger.Error("bad resolution override", "err", err)
		os.Exit(1)
	} else if ok {
		res = image.Pt(w, h)
	}
	profile, err := layout.ProfileFor(res.X, res.Y)
	if err != nil {
		logger.Error("no layout profile for this screen", "resolution", res, "err", err)
		os.Exit(1)
	}
	logger.Info("layout profile selected", "resolution", res)

	bridge, err := input.Open(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.Settle)
	if err != nil {
		logger.Error("input bridge unavailable", "port", cfg.Serial.Port, "err", err)
		os.Exit(1)
	}
	defer bridge.Close()

	var exporter store.Exporter
	if cfg.Database.Enabled {
		db, err := sql.Open("mysql", cfg.Database.DSN)
		if err != nil {
			logger.Error("database open failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("database unreachable", "err", err)
			os.Exit(1)
		}
		logger.Info("✅ database connected")
		exporter = database.NewManager(db, logger)
	}

	hotkeys := interrupt.NewManager(logger)
	hotkeys.StartMonitoring()
	logger.Info("⏸️ ready, Shift+Enter starts a scan, Q cancels it")

	for range hotkeys.StartChan() {
		hotkeys.SetRunning(true)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-hotkeys.CancelChan():
				logger.Info("⏹️ cancel requested")
				cancel()
			case <-ctx.Done():
			}
		}()

		controller := scanner.New(cfg.Scan, profile, screen, bridge, model, store.New(), logger)
		summary := controller.Run(ctx)
		cancel()
		hotkeys.SetRunning(false)

		logger.Info("scan finished",
			"recorded", summary.Recorded,
			"skipped", summary.Skipped,
			"expected", summary.Expected,
			"avg_inference", model.AverageInferenceTime(),
		)
		if summary.Err != nil {
			logger.Warn("scan did not complete", "reason", summary.Err)
		}

		if exporter != nil {
			if err := exporter.Export(controller.Results().Snapshot(), summary.Skipped); err != nil {
				logger.Error("export failed", "err", err)
			}
		}
		logger.Info("⏸️ ready, Shift+Enter starts a scan, Q cancels it")
	}
}
