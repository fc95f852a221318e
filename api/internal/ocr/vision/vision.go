package vision

import (
	"context"
	"errors"
	"fmt"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	grpcstatus "google.golang.org/grpc/status"

	"ocr-function/api/internal/ocr"
)

// TextDetector — подмножество visionapi.ImageAnnotatorClient, которое нам нужно (удобно мокать в тестах).
type TextDetector interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

var _ TextDetector = (*visionapi.ImageAnnotatorClient)(nil)

type Engine struct {
	client TextDetector
	closer func() error
}

// New создаёт клиента Cloud Vision. Без опций используются Application Default Credentials.
func New(ctx context.Context, opts ...option.ClientOption) (*Engine, error) {
	cl, err := visionapi.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &Engine{client: cl, closer: cl.Close}, nil
}

func NewWithClient(c TextDetector) *Engine {
	return &Engine{client: c}
}

func (e *Engine) Name() string { return "vision" }

func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

func (e *Engine) DetectText(ctx context.Context, image []byte) ([]ocr.Annotation, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	}
	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.GetResponses()) == 0 {
		return nil, errors.New("vision: empty batch response")
	}
	r := resp.GetResponses()[0]
	// ошибка уровня картинки приходит в теле ответа, а не как err вызова
	if st := r.GetError(); st != nil && st.GetCode() != 0 {
		return nil, grpcstatus.ErrorProto(st)
	}

	found := r.GetTextAnnotations()
	out := make([]ocr.Annotation, 0, len(found))
	for _, a := range found {
		if a == nil {
			continue
		}
		out = append(out, ocr.Annotation{Description: a.GetDescription(), Locale: a.GetLocale()})
	}
	return out, nil
}
