package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ocr-function/api/internal/ocr"
	"ocr-function/api/internal/util"
)

const defaultOCRURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

type Engine struct {
	iamc     *IamClient
	folderID string
	url      string
	langs    []string
	model    string
	httpc    *http.Client
}

func New(oauthToken, folderID string) *Engine {
	return &Engine{
		iamc:     NewIamClient(oauthToken),
		folderID: folderID,
		url:      defaultOCRURL,
		langs:    []string{"*"},
		model:    "page",
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "yandex" }

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"`      // "JPEG" | "PNG" | "PDF"
	LanguageCodes []string `json:"languageCodes,omitempty"` // ["*"] | ["ru","en"]
	Model         string   `json:"model,omitempty"`         // "page" | "handwritten"
}

type textAnnotation struct {
	FullText string `json:"fullText,omitempty"`
	Blocks   []struct {
		Lines []struct {
			Text string `json:"text,omitempty"`
		} `json:"lines,omitempty"`
	} `json:"blocks,omitempty"`
}

type response struct {
	Result *struct {
		TextAnnotation *textAnnotation `json:"textAnnotation,omitempty"`
		Page           string          `json:"page,omitempty"`
	} `json:"result,omitempty"`
}

func (r *response) textAnnotation() *textAnnotation {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.TextAnnotation
}

func (e *Engine) DetectText(ctx context.Context, image []byte) ([]ocr.Annotation, error) {
	iamToken, err := e.iamc.Token(ctx)
	if err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(request{
		Content:       base64.StdEncoding.EncodeToString(image),
		MimeType:      util.SniffMimeForOCR(image),
		LanguageCodes: e.langs,
		Model:         e.model,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+iamToken)
	req.Header.Set("x-folder-id", e.folderID)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// токен протух раньше срока — следующий запрос возьмёт новый
		e.iamc.Invalidate()
	}
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yandex ocr %d: %s", resp.StatusCode, string(x))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return toAnnotations(out.textAnnotation()), nil
}

// toAnnotations: первым идёт fullText (или склейка строк), дальше — строки по порядку.
func toAnnotations(ta *textAnnotation) []ocr.Annotation {
	if ta == nil {
		return nil
	}
	var lines []string
	for _, b := range ta.Blocks {
		for _, l := range b.Lines {
			if s := strings.TrimSpace(l.Text); s != "" {
				lines = append(lines, s)
			}
		}
	}
	full := strings.TrimSpace(ta.FullText)
	if full == "" {
		full = strings.Join(lines, "\n")
	}
	if full == "" {
		return nil
	}
	out := make([]ocr.Annotation, 0, len(lines)+1)
	out = append(out, ocr.Annotation{Description: full})
	for _, l := range lines {
		out = append(out, ocr.Annotation{Description: l})
	}
	return out
}
