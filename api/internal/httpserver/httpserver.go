package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"ocr-function/api/internal/handle"
	"ocr-function/api/internal/metrics"
)

const (
	PathExtract  = "/extract_text_from_image"
	PathCallable = "/callable/extractText"
)

// Pinger — проверка зависимостей для /healthz (журнал в БД). Может быть nil.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Handle          *handle.Handle
	CallableEnabled bool
	Health          Pinger
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", healthz(cfg.Health))
	r.Handle("/metrics", metrics.Handler())

	// любой метод: OPTIONS — preflight, остальное разбирается как тело запроса
	r.HandleFunc(PathExtract, cfg.Handle.ExtractText)
	if cfg.CallableEnabled {
		r.HandleFunc(PathCallable, cfg.Handle.Callable)
	}
	return r
}

func healthz(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Serve слушает addr до отмены ctx, затем корректно гасит сервер.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown error: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
