package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocr-function/api/internal/config"
)

func TestGoogleOptions(t *testing.T) {
	cfg := &config.Config{VisionAPIKey: "k", CredentialsFile: "/tmp/sa.json"}
	assert.Len(t, GoogleOptions(cfg, true), 2)
	assert.Len(t, GoogleOptions(cfg, false), 1)
	assert.Empty(t, GoogleOptions(&config.Config{}, true))
}

func TestEngines_OnlyConfigured(t *testing.T) {
	cfg := &config.Config{Engine: "gemini", GeminiAPIKey: "k", GeminiModel: "gemini-2.5-flash"}
	engs, closeFn, err := Engines(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	assert.Nil(t, engs.Vision)
	assert.Nil(t, engs.Yandex)
	e, err := engs.GetEngine(cfg.Engine)
	require.NoError(t, err)
	assert.Equal(t, "gemini", e.Name())
}

func TestExtractionLog_DisabledWithoutDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PGHOST", "")
	repo, db, err := ExtractionLog(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, repo)
	assert.Nil(t, db)
}

type countingPurger struct {
	calls  atomic.Int32
	cancel context.CancelFunc
	err    error
}

func (p *countingPurger) PurgeOlderThan(_ context.Context, _ time.Duration) (int64, error) {
	if p.calls.Add(1) >= 2 {
		p.cancel()
	}
	return 3, p.err
}

func TestPurgeLoop_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPurger{cancel: cancel, err: errors.New("boom")}

	done := make(chan struct{})
	go func() {
		PurgeLoop(ctx, p, 24*time.Hour, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("purge loop did not stop")
	}
	assert.GreaterOrEqual(t, int(p.calls.Load()), 2)
}

func TestPurgeLoop_DisabledRetention(t *testing.T) {
	p := &countingPurger{cancel: func() {}}
	PurgeLoop(context.Background(), p, 0, time.Millisecond)
	assert.Zero(t, p.calls.Load())
}
