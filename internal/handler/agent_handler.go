package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	"github.com/opencarelabs/clinicore/internal/pkg/response"
	"github.com/opencarelabs/clinicore/internal/service"
)

type AgentHandler struct {
	agent    *service.AgentService
	workflow *service.WorkflowService
}

func NewAgentHandler(agent *service.AgentService, workflow *service.WorkflowService) *AgentHandler {
	return &AgentHandler{agent: agent, workflow: workflow}
}

type extractRequest struct {
	Note string `json:"note"`
}

func (h *AgentHandler) ExtractStructured(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	record, usage, err := h.agent.Extract(c.Request.Context(), req.Note)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"structured": record, "usage": usage})
}

type agentRequest struct {
	Note string `json:"note"`
}

// Agent runs the extraction + mapping subset of the full workflow.
// Question answering stays on /answer_question and /full_workflow.
func (h *AgentHandler) Agent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.workflow.RunAgent(c.Request.Context(), req.Note)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
