package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ocr-function/api/internal/bootstrap"
	"ocr-function/api/internal/config"
	"ocr-function/api/internal/httpserver"
	"ocr-function/api/internal/metrics"
	"ocr-function/api/internal/telegram"
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

	bot, err := tgbotapi.NewBotAPI(cfg.MustTelegramToken())
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	r := telegram.NewRouter(bot, engine, cfg.TelegramAllowedChats)
	r.Metrics = metrics.Default()

	repo, db, err := bootstrap.ExtractionLog(ctx, cfg)
	if err != nil {
		log.Fatalf("extraction log: %v", err)
	}
	if repo != nil {
		defer db.Close()
		r.Recorder = repo
		go bootstrap.PurgeLoop(ctx, repo, cfg.LogRetention, time.Hour)
	}

	// healthz + metrics на DefaultServeMux: туда же ListenForWebhook вешает свой обработчик
	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	http.Handle("/metrics", metrics.Handler())

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("telegram bot: engine=%s allowed_chats=%d", engine.Name(), len(cfg.TelegramAllowedChats))

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, webhookURL)
	} else {
		startPollingMode(ctx, addr, bot, r)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Printf("webhook updates channel closed")
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	if err := httpserver.Serve(ctx, addr, http.DefaultServeMux); err != nil {
		log.Fatal(err)
	}
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	go func() {
		if err := httpserver.Serve(ctx, addr, http.DefaultServeMux); err != nil {
			log.Fatal(err)
		}
	}()
	runPolling(ctx, bot, r.HandleUpdate)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Printf("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Printf("polling error: %v; retry in %v", err, d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// shortHash — FNV-1a для секретного пути вебхука.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
