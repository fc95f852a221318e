// Package bootstrap собирает зависимости из конфига для обоих бинарников.
package bootstrap

import (
	"context"
	"database/sql"
	"log"
	"time"

	"google.golang.org/api/option"

	"ocr-function/api/internal/config"
	"ocr-function/api/internal/ocr"
	"ocr-function/api/internal/ocr/gemini"
	"ocr-function/api/internal/ocr/vision"
	"ocr-function/api/internal/ocr/yandex"
	"ocr-function/api/internal/store"
)

// GoogleOptions — креды для Vision/Firebase: API-ключ, файл сервисного аккаунта или ADC.
func GoogleOptions(cfg *config.Config, withAPIKey bool) []option.ClientOption {
	var opts []option.ClientOption
	if withAPIKey && cfg.VisionAPIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.VisionAPIKey))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// Engines создаёт только те движки, для которых есть ключи.
func Engines(ctx context.Context, cfg *config.Config) (*ocr.Engines, func(), error) {
	engs := &ocr.Engines{}
	closeFn := func() {}

	if config.CanonicalEngine(cfg.Engine) == "vision" {
		v, err := vision.New(ctx, GoogleOptions(cfg, true)...)
		if err != nil {
			return nil, nil, err
		}
		engs.Vision = v
		closeFn = func() {
			if err := v.Close(); err != nil {
				log.Printf("vision close: %v", err)
			}
		}
	}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.YCOAuthToken != "" && cfg.YCFolderID != "" {
		engs.Yandex = yandex.New(cfg.YCOAuthToken, cfg.YCFolderID)
	}
	return engs, closeFn, nil
}

// ExtractionLog открывает журнал в Postgres, если задан DSN. nil, nil — журнал выключен.
func ExtractionLog(ctx context.Context, cfg *config.Config) (*store.ExtractionRepo, *sql.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = store.ResolveDSN()
	}
	if dsn == "" {
		log.Printf("extraction log disabled: no DATABASE_URL")
		return nil, nil, nil
	}
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	repo := store.NewExtractionRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Printf("db connected: %s", store.SafeDSNSummary(dsn))
	return repo, db, nil
}

// purger — подмножество store.ExtractionRepo для PurgeLoop.
type purger interface {
	PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PurgeLoop каждые every удаляет записи старше retention, пока жив ctx.
func PurgeLoop(ctx context.Context, repo purger, retention, every time.Duration) {
	if repo == nil || retention <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := repo.PurgeOlderThan(ctx, retention)
		switch {
		case err != nil:
			log.Printf("extraction purge: %v", err)
		case n > 0:
			log.Printf("extraction purge: removed %d rows", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
