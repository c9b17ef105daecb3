package handler

import (
	"encoding/json"
	"net/http"

	"github.com/surveyops/backend/internal/service"
)

// QuoteHandler は見積もり関連のエンドポイント
type QuoteHandler struct {
	quoteService service.QuoteService
}

func NewQuoteHandler(quoteService service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// Generate godoc: POST /api/quotes/{id}
func (h *QuoteHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var input service.GenerateQuoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	p, err := h.quoteService.Generate(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Accept godoc: POST /api/quotes/{id}/accept
func (h *QuoteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	p, err := h.quoteService.Accept(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Reject godoc: POST /api/quotes/{id}/reject
func (h *QuoteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Reason string `json:"reason"`
	}
	// 理由は任意
	_ = json.NewDecoder(r.Body).Decode(&input)

	p, err := h.quoteService.Reject(r.Context(), r.PathValue("id"), input.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
