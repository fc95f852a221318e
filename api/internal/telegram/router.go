package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ocr-function/api/internal/handle"
	"ocr-function/api/internal/metrics"
	"ocr-function/api/internal/ocr"
	"ocr-function/api/internal/store"
	"ocr-function/api/internal/util"
)

const (
	maxReplyRunes = 3900
	debounce      = 1200 * time.Millisecond
)

// botAPI — то, что Router использует из *tgbotapi.BotAPI.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      botAPI
	Engine   ocr.Engine
	Recorder handle.Recorder
	Metrics  *metrics.Metrics

	allowed  map[int64]struct{}
	download func(ctx context.Context, url string) ([]byte, error)
	batches  sync.Map // "grp:<mediaGroupID>" -> *photoBatch
}

func NewRouter(bot botAPI, eng ocr.Engine, allowedChats []int64) *Router {
	r := &Router{Bot: bot, Engine: eng, download: download}
	if len(allowedChats) > 0 {
		r.allowed = make(map[int64]struct{}, len(allowedChats))
		for _, id := range allowedChats {
			r.allowed[id] = struct{}{}
		}
	}
	return r
}

func (r *Router) chatAllowed(chatID int64) bool {
	if r.allowed == nil {
		return true
	}
	_, ok := r.allowed[chatID]
	return ok
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if !r.chatAllowed(cid) {
		r.send(cid, "Sorry, this bot is private.")
		return
	}
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(*msg)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.send(cid, "Send me a photo (or an album) and I'll reply with the text on it.\nCommands: /health, /engine")
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.send(cid, "Current OCR engine: "+r.Engine.Name())
	default:
		r.send(cid, "Unknown command")
	}
}

// recognizeAll распознаёт снимки по очереди и склеивает найденный текст через перевод строки.
func (r *Router) recognizeAll(ctx context.Context, chatID int64, images [][]byte) (string, error) {
	var texts []string
	for _, img := range images {
		started := time.Now()
		res, anns, err := ocr.Recognize(ctx, r.Engine, img)
		r.Metrics.ObserveProvider(r.Engine.Name(), started)
		r.record(ctx, chatID, img, res, anns, err)
		if err != nil {
			r.Metrics.Request(metrics.EndpointTelegram, metrics.OutcomeProviderError)
			return "", err
		}
		if len(anns) == 0 {
			r.Metrics.Request(metrics.EndpointTelegram, metrics.OutcomeNoText)
			continue
		}
		r.Metrics.Request(metrics.EndpointTelegram, metrics.OutcomeOK)
		texts = append(texts, res.Text)
	}
	if len(texts) == 0 {
		return ocr.NoTextFound, nil
	}
	out := texts[0]
	for _, t := range texts[1:] {
		out += "\n" + t
	}
	return out, nil
}

func (r *Router) record(ctx context.Context, chatID int64, img []byte, res ocr.TextResult, anns []ocr.Annotation, err error) {
	if r.Recorder == nil {
		return
	}
	row := store.Extraction{
		Endpoint:  metrics.EndpointTelegram,
		Caller:    strconv.FormatInt(chatID, 10),
		Engine:    r.Engine.Name(),
		ImageHash: util.SHA256Hex(img),
		Found:     len(anns) > 0,
	}
	if row.Found {
		row.TextLen = len(res.Text)
	}
	if err != nil {
		row.Error = err.Error()
	}
	if rerr := r.Recorder.Record(ctx, row); rerr != nil {
		log.Printf("extraction log: %v", rerr)
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("telegram send to %d: %v", chatID, err)
	}
}

func (r *Router) SendResult(chatID int64, text string) {
	r.send(chatID, "📝 Recognized text:\n\n"+util.TruncateRunes(text, maxReplyRunes))
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("OCR error: %v", err))
}
