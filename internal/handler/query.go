package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/models"
)

// maxBodyBytes bounds the POST /query request body
const maxBodyBytes = 1 << 20

// QuestionAnswerer runs the question pipeline. *agent.SQLAgent implements it.
type QuestionAnswerer interface {
	Handle(ctx context.Context, question string) (*models.ChatResponse, error)
}

// QueryHandler handles natural-language questions
type QueryHandler struct {
	agent QuestionAnswerer
}

func NewQueryHandler(agent QuestionAnswerer) *QueryHandler {
	return &QueryHandler{agent: agent}
}

// Query handles POST /query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// In-flight generation and execution finish even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	resp, err := h.agent.Handle(ctx, req.Question())
	if err != nil {
		appErr := apperr.As(err)
		models.WriteError(w, apperr.HTTPStatus(appErr.Kind), appErr.Message)
		return
	}

	models.WriteJSON(w, http.StatusOK, resp)
}
