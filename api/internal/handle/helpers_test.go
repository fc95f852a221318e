package handle

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ocr-function/api/internal/access"
	"ocr-function/api/internal/metrics"
	"ocr-function/api/internal/ocr"
	"ocr-function/api/internal/store"
)

var validImageB64 = base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})

type fakeEngine struct {
	mu    sync.Mutex
	anns  []ocr.Annotation
	err   error
	calls int
	got   []byte
	mime  string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) DetectText(ctx context.Context, image []byte) ([]ocr.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = image
	f.mime = ocr.MIMEHint(ctx)
	return f.anns, f.err
}

func (f *fakeEngine) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVerifier map[string]access.Identity

func (f fakeVerifier) Verify(_ context.Context, tok string) (access.Identity, error) {
	id, ok := f[tok]
	if !ok {
		return access.Identity{}, errors.New("invalid token")
	}
	return id, nil
}

type fakeRecorder struct {
	rows []store.Extraction
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, e store.Extraction) error {
	f.rows = append(f.rows, e)
	return f.err
}

func helloWorld() []ocr.Annotation {
	return []ocr.Annotation{{Description: "Hello World"}, {Description: "Hello"}, {Description: "World"}}
}

func newTestHandle(eng *fakeEngine, rec *fakeRecorder) *Handle {
	o := Options{
		Engine:         eng,
		Admins:         access.NewAllowList("saums06@gmail.com"),
		CallableOrigin: "https://stats.example.com",
		MaxBodyBytes:   1 << 20,
		Metrics:        metrics.New(prometheus.NewRegistry()),
		Verifier: fakeVerifier{
			"admin-token":  {UID: "u1", Email: "saums06@gmail.com"},
			"random-token": {UID: "u2", Email: "random@x.com"},
		},
	}
	if rec != nil {
		o.Recorder = rec
	}
	return New(o)
}
