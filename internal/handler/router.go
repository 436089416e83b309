package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencarelabs/clinicore/internal/middleware"
)

type RouterDeps struct {
	Documents *DocumentHandler
	LLM       *LLMHandler
	Agent     *AgentHandler
	FHIR      *FHIRHandler
	Workflow  *WorkflowHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.POST("/documents", deps.Documents.Create)
	api.POST("/documents/upload", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	// Everything below spends provider tokens, so it gets a light
	// per-client rate limit.
	aiGroup := api.Group("")
	aiGroup.Use(middleware.RateLimit(time.Second))
	aiGroup.POST("/summarize", deps.LLM.Summarize)
	aiGroup.POST("/answer_question", deps.LLM.Answer)
	aiGroup.POST("/agent/extract_structured", deps.Agent.ExtractStructured)
	aiGroup.POST("/agent", deps.Agent.Agent)
	aiGroup.POST("/full_workflow", deps.Workflow.Full)

	api.POST("/to_fhir", deps.FHIR.ToFHIR)
}
