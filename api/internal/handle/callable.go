package handle

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ocr-function/api/internal/access"
	"ocr-function/api/internal/metrics"
	"ocr-function/api/internal/ocr"
)

// Status — коды ошибок callable-протокола.
type Status string

const (
	StatusInvalidArgument  Status = "INVALID_ARGUMENT"
	StatusUnauthenticated  Status = "UNAUTHENTICATED"
	StatusPermissionDenied Status = "PERMISSION_DENIED"
	StatusInternal         Status = "INTERNAL"
)

func (s Status) HTTPStatus() int {
	switch s {
	case StatusInvalidArgument:
		return http.StatusBadRequest
	case StatusUnauthenticated:
		return http.StatusUnauthorized
	case StatusPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type CallableError struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (e *CallableError) Error() string { return string(e.Status) + ": " + e.Message }

var (
	ErrUnauthenticated = &CallableError{Status: StatusUnauthenticated, Message: "The function must be called while authenticated."}
	ErrPermission      = &CallableError{Status: StatusPermissionDenied, Message: "You do not have permission to use this function."}
	errBadRequest      = &CallableError{Status: StatusInvalidArgument, Message: "Bad Request"}
	errInternal        = &CallableError{Status: StatusInternal, Message: "INTERNAL"}
)

// CallableRequest — вызов с уже проверенной платформой личностью (Auth == nil — без токена).
type CallableRequest struct {
	Auth *access.Identity
	Data json.RawMessage
}

// HandleCall — авторизованный вариант. Ошибки авторизации возвращаются как *CallableError
// до обращения к провайдеру; ошибки провайдера не оборачиваются.
func (h *Handle) HandleCall(ctx context.Context, req CallableRequest) (ocr.TextResult, error) {
	if req.Auth == nil {
		h.met.Request(metrics.EndpointCallable, metrics.OutcomeUnauthenticated)
		return ocr.TextResult{}, ErrUnauthenticated
	}
	if !h.admins.Allows(req.Auth.Email) {
		h.met.Request(metrics.EndpointCallable, metrics.OutcomePermissionDenied)
		return ocr.TextResult{}, ErrPermission
	}

	img, err := ParseImageRequest(req.Data)
	if err != nil {
		h.met.Request(metrics.EndpointCallable, metrics.OutcomeBadRequest)
		msg := err.Error()
		var ve *ValidationError
		if errors.As(err, &ve) {
			msg = ve.Message
		}
		return ocr.TextResult{}, &CallableError{Status: StatusInvalidArgument, Message: msg}
	}

	return h.recognize(ctx, metrics.EndpointCallable, req.Auth.Email, img)
}

type callableEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type callableResult struct {
	Result ocr.TextResult `json:"result"`
}

type callableFailure struct {
	Error *CallableError `json:"error"`
}

// Callable — HTTP-транспорт callable-протокола: {"data": {...}} → {"result": {...}}.
func (h *Handle) Callable(w http.ResponseWriter, r *http.Request) {
	setCallableCORS(w.Header(), h.callableOrigin)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeCallableError(w, errBadRequest)
		return
	}

	body, err := readBody(w, r, h.maxBody)
	if err != nil {
		writeCallableError(w, &CallableError{Status: StatusInvalidArgument, Message: parseFailed(err).Message})
		return
	}
	var env callableEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		writeCallableError(w, errBadRequest)
		return
	}

	req := CallableRequest{Data: env.Data}
	if tok := access.BearerToken(r.Header.Get("Authorization")); tok != "" && h.verifier != nil {
		id, err := h.verifier.Verify(r.Context(), tok)
		if err != nil {
			log.Printf("callable: token rejected: %v", err)
			h.met.Request(metrics.EndpointCallable, metrics.OutcomeUnauthenticated)
			writeCallableError(w, ErrUnauthenticated)
			return
		}
		req.Auth = &id
	}

	res, err := h.HandleCall(r.Context(), req)
	if err != nil {
		var ce *CallableError
		if !errors.As(err, &ce) {
			// необработанная ошибка провайдера: клиенту только INTERNAL, детали уже в логе
			ce = errInternal
		}
		writeCallableError(w, ce)
		return
	}
	writeJSON(w, http.StatusOK, callableResult{Result: res})
}

func writeCallableError(w http.ResponseWriter, ce *CallableError) {
	writeJSON(w, ce.Status.HTTPStatus(), callableFailure{Error: ce})
}
