package ocr

import (
	"context"
	"errors"
	"strings"
)

// Engine — внешний провайдер распознавания текста.
// DetectText возвращает аннотации в порядке провайдера: первая — весь текст целиком,
// остальные — отдельные слова/строки. Пустой срез означает, что текста нет.
type Engine interface {
	Name() string
	DetectText(ctx context.Context, image []byte) ([]Annotation, error)
}

var ErrUnknownEngine = errors.New("unknown ocr engine; use 'vision', 'gemini' or 'yandex'")

type Engines struct {
	Vision Engine
	Gemini Engine
	Yandex Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "vision", "google":
		eng = e.Vision
	case "gemini":
		eng = e.Gemini
	case "yandex":
		eng = e.Yandex
	default:
		return nil, ErrUnknownEngine
	}
	if eng == nil {
		return nil, errors.New("ocr engine " + name + " is not configured")
	}
	return eng, nil
}
