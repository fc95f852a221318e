package util

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

var ErrEmptyImage = errors.New("image is empty")

func SniffMimeForOCR(b []byte) string {
	// JPEG: FF D8
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "JPEG"
	}
	// PNG
	if isPNG(b) {
		return "PNG"
	}
	// PDF
	if len(b) >= 5 && string(b[:5]) == "%PDF-" {
		return "PDF"
	}
	return ""
}

func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if isPNG(b) {
		return "image/png"
	}
	return "application/octet-stream"
}

func isPNG(b []byte) bool {
	return len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A
}

// DecodeBase64MaybeDataURL декодирует base64. Если это data:URI, вернёт MIME из префикса.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	// стандартная база64, затем URL-safe и варианты без паддинга
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var alt []byte
		var altErr error
		for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
			if alt, altErr = enc.DecodeString(s); altErr == nil {
				b, err = alt, nil
				break
			}
		}
	}
	if err != nil {
		return nil, "", err
	}
	if len(b) == 0 {
		return nil, "", ErrEmptyImage
	}
	return b, hintMIME, nil
}

// PickMIME берём явный MIME, затем из data:URI, иначе детектим по байтам.
// Нераспознанные байты считаем JPEG: провайдеры не принимают octet-stream.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		if m := http.DetectContentType(data); strings.HasPrefix(m, "image/") || m == "application/pdf" {
			return m
		}
	}
	return "image/jpeg"
}

func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
