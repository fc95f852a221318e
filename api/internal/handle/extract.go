package handle

import (
	"errors"
	"net/http"

	"ocr-function/api/internal/metrics"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ExtractText — анонимный эндпоинт: {"image": "<base64>"} → {"text": "..."}.
func (h *Handle) ExtractText(w http.ResponseWriter, r *http.Request) {
	setOpenCORS(w.Header())

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := readBody(w, r, h.maxBody)
	if err != nil {
		h.met.Request(metrics.EndpointHTTP, metrics.OutcomeBadRequest)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: parseFailed(err).Message})
		return
	}
	req, err := ParseImageRequest(body)
	if err != nil {
		h.met.Request(metrics.EndpointHTTP, metrics.OutcomeBadRequest)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			ve = parseFailed(err)
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message})
		return
	}

	res, err := h.recognize(r.Context(), metrics.EndpointHTTP, "", req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Server Error: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
