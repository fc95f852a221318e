package ocr

import "context"

// TextFromAnnotations применяет политику ответа: пусто → NoTextFound,
// иначе description первой аннотации без изменений.
func TextFromAnnotations(anns []Annotation) TextResult {
	if len(anns) == 0 {
		return TextResult{Text: NoTextFound}
	}
	return TextResult{Text: anns[0].Description}
}

// Recognize вызывает движок один раз, без ретраев.
func Recognize(ctx context.Context, e Engine, image []byte) (TextResult, []Annotation, error) {
	anns, err := e.DetectText(ctx, image)
	if err != nil {
		return TextResult{}, nil, err
	}
	return TextFromAnnotations(anns), anns, nil
}

type mimeHintKey struct{}

// WithMIMEHint кладёт в ctx MIME картинки, известный из запроса (data:URI).
func WithMIMEHint(ctx context.Context, mime string) context.Context {
	if mime == "" {
		return ctx
	}
	return context.WithValue(ctx, mimeHintKey{}, mime)
}

// MIMEHint — MIME из WithMIMEHint или "".
func MIMEHint(ctx context.Context) string {
	s, _ := ctx.Value(mimeHintKey{}).(string)
	return s
}
