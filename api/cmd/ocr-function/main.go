package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ocr-function/api/internal/access"
	"ocr-function/api/internal/bootstrap"
	"ocr-function/api/internal/config"
	"ocr-function/api/internal/handle"
	"ocr-function/api/internal/httpserver"
	"ocr-function/api/internal/metrics"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engines, closeEngines, err := bootstrap.Engines(ctx, cfg)
	if err != nil {
		log.Fatalf("ocr engines: %v", err)
	}
	defer closeEngines()

	engine, err := engines.GetEngine(cfg.Engine)
	if err != nil {
		log.Fatalf("ocr engine: %v", err)
	}

	opts := handle.Options{
		Engine:         engine,
		Admins:         cfg.AllowList(),
		CallableOrigin: cfg.CallableOrigin,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Metrics:        metrics.Default(),
	}

	if cfg.CallableEnabled() {
		v, err := access.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, bootstrap.GoogleOptions(cfg, false)...)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
		opts.Verifier = v
		log.Printf("callable endpoint enabled: project=%s admins=%d origin=%s",
			cfg.FirebaseProjectID, opts.Admins.Len(), cfg.CallableOrigin)
	} else {
		log.Printf("callable endpoint disabled: FIREBASE_PROJECT_ID is empty")
	}

	rc := httpserver.RouterConfig{CallableEnabled: cfg.CallableEnabled()}

	repo, db, err := bootstrap.ExtractionLog(ctx, cfg)
	if err != nil {
		log.Fatalf("extraction log: %v", err)
	}
	if repo != nil {
		defer db.Close()
		opts.Recorder = repo
		go bootstrap.PurgeLoop(ctx, repo, cfg.LogRetention, time.Hour)
		rc.Health = repo
	}

	rc.Handle = handle.New(opts)

	log.Printf("ocr-function: engine=%s", engine.Name())
	if err := httpserver.Serve(ctx, ":"+cfg.Port, httpserver.NewRouter(rc)); err != nil {
		log.Fatal(err)
	}
}
