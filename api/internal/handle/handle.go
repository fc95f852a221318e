package handle

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"ocr-function/api/internal/access"
	"ocr-function/api/internal/metrics"
	"ocr-function/api/internal/ocr"
	"ocr-function/api/internal/store"
	"ocr-function/api/internal/util"
)

// Recorder — журнал распознаваний (store.ExtractionRepo). Может быть nil.
type Recorder interface {
	Record(ctx context.Context, e store.Extraction) error
}

type Options struct {
	Engine         ocr.Engine
	Admins         access.AllowList
	Verifier       access.Verifier // nil — callable без проверки токена не обслуживается
	CallableOrigin string
	MaxBodyBytes   int64
	Recorder       Recorder
	Metrics        *metrics.Metrics
}

type Handle struct {
	eng            ocr.Engine
	admins         access.AllowList
	verifier       access.Verifier
	callableOrigin string
	maxBody        int64
	rec            Recorder
	met            *metrics.Metrics
}

func New(o Options) *Handle {
	return &Handle{
		eng:            o.Engine,
		admins:         o.Admins,
		verifier:       o.Verifier,
		callableOrigin: o.CallableOrigin,
		maxBody:        o.MaxBodyBytes,
		rec:            o.Recorder,
		met:            o.Metrics,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// recognize — единственная точка вызова провайдера: метрики, лог ошибок, журнал.
func (h *Handle) recognize(ctx context.Context, endpoint, caller string, img ImageRequest) (ocr.TextResult, error) {
	image := img.Image
	ctx = ocr.WithMIMEHint(ctx, img.MIMEHint)
	started := time.Now()
	res, anns, err := ocr.Recognize(ctx, h.eng, image)
	h.met.ObserveProvider(h.eng.Name(), started)

	row := store.Extraction{
		Endpoint:  endpoint,
		Caller:    caller,
		Engine:    h.eng.Name(),
		ImageHash: util.SHA256Hex(image),
		Found:     len(anns) > 0,
		TextLen:   len(res.Text),
	}
	switch {
	case err != nil:
		log.Printf("%s api error (%s): %v", h.eng.Name(), endpoint, err)
		h.met.Request(endpoint, metrics.OutcomeProviderError)
		row.Error, row.TextLen = err.Error(), 0
	case len(anns) == 0:
		h.met.Request(endpoint, metrics.OutcomeNoText)
		row.TextLen = 0
	default:
		h.met.Request(endpoint, metrics.OutcomeOK)
	}
	h.record(ctx, row)
	return res, err
}

func (h *Handle) record(ctx context.Context, row store.Extraction) {
	if h.rec == nil {
		return
	}
	// журнал не должен влиять на ответ и не должен отменяться вместе с запросом
	if err := h.rec.Record(context.WithoutCancel(ctx), row); err != nil {
		log.Printf("extraction log: %v", err)
	}
}
