package handler

import (
	"encoding/json"
	"net/http"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/service"
)

// MessageHandler はプロジェクトスレッドのエンドポイント
type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// List godoc: GET /api/projects/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.ListByProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []*model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// Post godoc: POST /api/projects/{id}/messages
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Body       string `json:"body"`
		IsInternal bool   `json:"is_internal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	msg, err := h.messageService.Post(r.Context(), r.PathValue("id"), input.Body, input.IsInternal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
