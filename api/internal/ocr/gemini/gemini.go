package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ocr-function/api/internal/ocr"
	"ocr-function/api/internal/util"
)

const (
	systemPrompt = `You are an OCR module. Transcribe ALL text visible in the image exactly as written:
keep line breaks, order, punctuation, digits and spacing. Do not translate, summarize or explain.
If the image contains no readable text, reply with exactly ` + noTextMarker + `.
Reply with the plain transcription only, without code fences or commentary.`
	noTextMarker = "<<NO_TEXT>>"
)

// generator — то, что нам нужно от *genai.GenerativeModel.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Engine struct {
	APIKey string
	Model  string

	gen generator // для тестов; в проде модель создаётся на каждый вызов
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) DetectText(ctx context.Context, image []byte) ([]ocr.Annotation, error) {
	gen := e.gen
	if gen == nil {
		if e.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is empty")
		}
		cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
		if err != nil {
			return nil, err
		}
		defer cl.Close()

		m := cl.GenerativeModel(e.Model)
		if m == nil {
			return nil, fmt.Errorf("gemini: model is nil")
		}
		m.GenerationConfig = genai.GenerationConfig{
			Temperature:      ptrFloat32(0),
			ResponseMIMEType: "text/plain",
		}
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
		gen = m
	}

	resp, err := gen.GenerateContent(ctx,
		genai.Text("Transcribe the text in this image."),
		&genai.Blob{MIMEType: util.PickMIME("", ocr.MIMEHint(ctx), image), Data: image},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	txt := util.StripCodeFences(firstText(resp))
	if txt == "" || txt == noTextMarker {
		return nil, nil
	}
	// у Gemini нет пословных аннотаций — только агрегат
	return []ocr.Annotation{{Description: txt}}, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
