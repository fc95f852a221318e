package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"ocr-function/api/internal/access"
	"ocr-function/api/internal/handle"
	"ocr-function/api/internal/metrics"
	"ocr-function/api/internal/ocr"
)

type noTextEngine struct{}

func (noTextEngine) Name() string { return "stub" }
func (noTextEngine) DetectText(context.Context, []byte) ([]ocr.Annotation, error) {
	return nil, nil
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newHandle() *handle.Handle {
	return handle.New(handle.Options{
		Engine:  noTextEngine{},
		Admins:  access.NewAllowList("saums06@gmail.com"),
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestRouter_ExtractRoute(t *testing.T) {
	r := NewRouter(RouterConfig{Handle: newHandle()})

	w := serve(r, http.MethodPost, PathExtract, `{"image":"AAAA"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"No text found."}`, w.Body.String())

	w = serve(r, http.MethodOptions, PathExtract, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CallableOnlyWhenEnabled(t *testing.T) {
	w := serve(NewRouter(RouterConfig{Handle: newHandle()}), http.MethodPost, PathCallable, `{"data":{}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(NewRouter(RouterConfig{Handle: newHandle(), CallableEnabled: true}), http.MethodPost, PathCallable, `{"data":{}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Healthz(t *testing.T) {
	w := serve(NewRouter(RouterConfig{Handle: newHandle()}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	w = serve(NewRouter(RouterConfig{Handle: newHandle(), Health: down}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_Metrics(t *testing.T) {
	w := serve(NewRouter(RouterConfig{Handle: newHandle()}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()
	cancel()
	assert.NoError(t, <-done)
}
