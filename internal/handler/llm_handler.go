package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	"github.com/opencarelabs/clinicore/internal/pkg/response"
	"github.com/opencarelabs/clinicore/internal/service"
)

type LLMHandler struct {
	ai  *service.AIService
	rag *service.RagService
}

func NewLLMHandler(ai *service.AIService, rag *service.RagService) *LLMHandler {
	return &LLMHandler{ai: ai, rag: rag}
}

type summarizeRequest struct {
	Text string `json:"text"`
}

func (h *LLMHandler) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	summary, usage, err := h.ai.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"summary": summary, "usage": usage})
}

type answerRequest struct {
	Question string `json:"question"`
	Note     string `json:"note"`
}

func (h *LLMHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.rag.Answer(c.Request.Context(), req.Question, req.Note)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}
