package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type photoBatch struct {
	ChatID int64

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
	closed bool
}

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ctx := context.Background()

	// берём самое крупное превью
	ph := msg.Photo[len(msg.Photo)-1]
	url, err := r.Bot.GetFileDirectURL(ph.FileID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	img, err := r.download(ctx, url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	if msg.MediaGroupID == "" {
		r.process(ctx, cid, [][]byte{img})
		return
	}

	// альбом приходит отдельными апдейтами — копим и обрабатываем после паузы
	if r.addToBatch("grp:"+msg.MediaGroupID, cid, img) {
		r.send(cid, "Album received, processing once all photos arrive…")
	}
}

// addToBatch кладёт снимок в батч альбома и перезапускает таймер.
// Батч, уже забранный flush, закрыт: тогда заводим новый. true — снимок первый в батче.
func (r *Router) addToBatch(key string, chatID int64, img []byte) bool {
	for {
		bi, _ := r.batches.LoadOrStore(key, &photoBatch{ChatID: chatID})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			r.batches.CompareAndDelete(key, b)
			continue
		}
		b.images = append(b.images, img)
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(debounce, func() { r.flush(key, b) })
		first := len(b.images) == 1
		b.mu.Unlock()
		return first
	}
}

func (r *Router) flush(key string, b *photoBatch) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	images := append([][]byte(nil), b.images...)
	b.mu.Unlock()
	r.batches.CompareAndDelete(key, b)

	if len(images) == 0 {
		return
	}
	r.process(context.Background(), b.ChatID, images)
}

func (r *Router) process(ctx context.Context, chatID int64, images [][]byte) {
	text, err := r.recognizeAll(ctx, chatID, images)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	r.SendResult(chatID, text)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

var httpClient = &http.Client{Timeout: 60 * time.Second}
