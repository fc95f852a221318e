package handle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ocr-function/api/internal/util"
)

// ValidationError — ошибка разбора запроса; Message уходит клиенту как есть.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var ErrMissingImage = &ValidationError{Message: "Missing 'image' field"}

func parseFailed(err error) *ValidationError {
	return &ValidationError{Message: "Request parsing failed: " + err.Error()}
}

// ImageRequest — проверенный запрос: уже декодированные байты картинки.
type ImageRequest struct {
	Image    []byte
	MIMEHint string // из data:URI, если был
}

// ParseImageRequest разбирает {"image": "<base64>"}.
// Пустое тело, не-объект, null и пустая строка считаются отсутствием поля.
func ParseImageRequest(body []byte) (ImageRequest, error) {
	if len(body) == 0 {
		return ImageRequest{}, ErrMissingImage
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ImageRequest{}, ErrMissingImage
		}
		return ImageRequest{}, parseFailed(err)
	}
	raw, ok := fields["image"]
	if !ok || string(raw) == "null" {
		return ImageRequest{}, ErrMissingImage
	}
	var b64 string
	if err := json.Unmarshal(raw, &b64); err != nil {
		return ImageRequest{}, parseFailed(errors.New("'image' must be a base64 string"))
	}
	if b64 == "" {
		return ImageRequest{}, ErrMissingImage
	}
	img, mime, err := util.DecodeBase64MaybeDataURL(b64)
	if err != nil {
		return ImageRequest{}, parseFailed(err)
	}
	return ImageRequest{Image: img, MIMEHint: mime}, nil
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	var rd io.Reader = r.Body
	if limit > 0 {
		rd = http.MaxBytesReader(w, r.Body, limit)
	}
	return io.ReadAll(rd)
}
