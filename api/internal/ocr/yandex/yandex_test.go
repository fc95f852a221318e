package yandex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, ocrHandler http.HandlerFunc) (*Engine, *int32) {
	t.Helper()
	var iamCalls int32
	iam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&iamCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"iamToken": "t1"})
	}))
	t.Cleanup(iam.Close)
	srv := httptest.NewServer(ocrHandler)
	t.Cleanup(srv.Close)

	e := New("oauth", "folder-1")
	e.iamc.url = iam.URL
	e.url = srv.URL
	return e, &iamCalls
}

func TestDetectText_FullTextThenLines(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		assert.Equal(t, "folder-1", r.Header.Get("x-folder-id"))
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "PNG", req.MimeType)
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"fullText":"Hello World","blocks":[{"lines":[{"text":"Hello"},{"text":"World"}]}]}}}`))
	})

	anns, err := e.DetectText(context.Background(), []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	require.NoError(t, err)
	require.Len(t, anns, 3)
	assert.Equal(t, "Hello World", anns[0].Description)
	assert.Equal(t, "Hello", anns[1].Description)
}

func TestDetectText_LinesOnly(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"blocks":[{"lines":[{"text":"A"},{"text":" B "}]}]}}}`))
	})
	anns, err := e.DetectText(context.Background(), []byte{1})
	require.NoError(t, err)
	require.Len(t, anns, 3)
	assert.Equal(t, "A\nB", anns[0].Description)
}

func TestDetectText_NoAnnotation(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{}}`))
	})
	anns, err := e.DetectText(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestDetectText_UnauthorizedInvalidatesToken(t *testing.T) {
	e, iamCalls := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("expired"))
	})
	_, err := e.DetectText(context.Background(), []byte{1})
	assert.EqualError(t, err, "yandex ocr 401: expired")
	_, _ = e.DetectText(context.Background(), []byte{1})
	assert.Equal(t, int32(2), atomic.LoadInt32(iamCalls))
}

func TestIamClient_CachesToken(t *testing.T) {
	e, iamCalls := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	for i := 0; i < 3; i++ {
		_, err := e.DetectText(context.Background(), []byte{1})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(iamCalls))
}
