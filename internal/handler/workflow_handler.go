package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	"github.com/opencarelabs/clinicore/internal/pkg/response"
	"github.com/opencarelabs/clinicore/internal/service"
)

type WorkflowHandler struct {
	workflow *service.WorkflowService
}

func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

type fullWorkflowRequest struct {
	Note     string `json:"note"`
	Question string `json:"question"`
}

func (h *WorkflowHandler) Full(c *gin.Context) {
	var req fullWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.workflow.RunFull(c.Request.Context(), req.Note, req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	if result.Degraded {
		// Partial success: the answer branch failed but the rest of the
		// pipeline is intact.
		response.JSON(c, http.StatusMultiStatus, result)
		return
	}
	response.Success(c, result)
}
