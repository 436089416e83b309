package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/handler"
	"github.com/opencarelabs/clinicore/internal/model"
	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
	"github.com/opencarelabs/clinicore/internal/service"
)

type routerGateway struct {
	answerErr    error
	summarizeErr error
}

func (g *routerGateway) Summarize(ctx context.Context, note string) (string, ai.Usage, error) {
	if g.summarizeErr != nil {
		return "", ai.Usage{}, g.summarizeErr
	}
	return "note summary", ai.NewUsage(10, 5), nil
}

func (g *routerGateway) Answer(ctx context.Context, question string, note string, contexts []ai.ContextDocument) (string, ai.Usage, error) {
	if g.answerErr != nil {
		return "", ai.Usage{}, g.answerErr
	}
	return "grounded answer", ai.NewUsage(20, 10), nil
}

func (g *routerGateway) ExtractRecord(ctx context.Context, note string) (*model.ClinicalRecord, ai.Usage, error) {
	name := "John Doe"
	return &model.ClinicalRecord{
		Patient:    &model.PatientInfo{Name: &name},
		Conditions: []model.Condition{{Name: "hypertension"}},
	}, ai.NewUsage(30, 15), nil
}

func (g *routerGateway) Embed(ctx context.Context, text string, taskType string) (*ai.EmbedResult, error) {
	return &ai.EmbedResult{Vector: []float32{1, 0, 0}, Usage: ai.NewUsage(3, 0)}, nil
}

func (g *routerGateway) MaxInputChars() int { return 100000 }

func (g *routerGateway) EmbeddingModelName() string { return "test-embed" }

type routerStore struct {
	docs []*model.Document
}

func (s *routerStore) Create(ctx context.Context, doc *model.Document) error {
	copied := *doc
	s.docs = append(s.docs, &copied)
	return nil
}

func (s *routerStore) List(ctx context.Context) ([]model.Document, error) {
	out := make([]model.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (s *routerStore) Get(ctx context.Context, id string) (*model.Document, error) {
	for _, doc := range s.docs {
		if doc.ID == id {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, errNotFound
}

func (s *routerStore) Delete(ctx context.Context, id string) error {
	for i, doc := range s.docs {
		if doc.ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (s *routerStore) ListEmbeddings(ctx context.Context) ([]model.DocumentEmbedding, error) {
	out := make([]model.DocumentEmbedding, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, model.DocumentEmbedding{DocumentID: doc.ID, Embedding: doc.Embedding, Ctime: doc.Ctime})
	}
	return out, nil
}

func (s *routerStore) StoredEmbedDim(ctx context.Context) (int, bool, error) {
	for _, doc := range s.docs {
		if len(doc.Embedding) > 0 {
			return len(doc.Embedding), true, nil
		}
	}
	return 0, false, nil
}

var errNotFound = appErr.ErrNotFound

func setupRouter(t *testing.T, gw *routerGateway) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &routerStore{}
	documentService := service.NewDocumentService(store, gw, nil, 3)
	ragService := service.NewRagService(store, gw, 3)
	aiService := service.NewAIService(gw)
	agentService := service.NewAgentService(gw, nil)
	workflowService := service.NewWorkflowService(aiService, ragService, agentService)

	engine := gin.New()
	group := engine.Group("/api/v1")
	handler.RegisterRoutes(group, handler.RouterDeps{
		Documents: handler.NewDocumentHandler(documentService),
		LLM:       handler.NewLLMHandler(aiService, ragService),
		Agent:     handler.NewAgentHandler(agentService, workflowService),
		FHIR:      handler.NewFHIRHandler(),
		Workflow:  handler.NewWorkflowHandler(workflowService),
	})
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})
	rec := doJSON(t, engine, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/documents", `{"title": "HTN guideline", "content": "Target BP below 130/80."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "HTN guideline")
	// The stored content never appears in the create response.
	require.NotContains(t, rec.Body.String(), "Target BP")

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "HTN guideline")
}

func TestToFHIREndpoint(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})

	body := `{"structured": {"patient": {"name": "John Doe", "age": null, "sex": null}, "conditions": [{"name": "hypertension"}], "medications": [], "vitals": [], "labs": [], "plan": []}}`
	rec := doJSON(t, engine, http.MethodPost, "/api/v1/to_fhir", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Bundle"`)
	require.Contains(t, rec.Body.String(), "patient-1")
	require.Contains(t, rec.Body.String(), "condition-1")
}

func TestFullWorkflowDegradedStatus(t *testing.T) {
	engine := setupRouter(t, &routerGateway{answerErr: ai.ErrUnavailable})

	// A document must exist, otherwise the empty-store shortcut answers
	// without touching the provider and nothing degrades.
	rec := doJSON(t, engine, http.MethodPost, "/api/v1/documents", `{"title": "ref", "content": "reference text"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/full_workflow", `{"note": "BP 150/95", "question": "target?"}`)
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var result struct {
		Summary     string          `json:"summary"`
		RagAnswer   *string         `json:"rag_answer"`
		AnswerError string          `json:"answer_error"`
		Structured  json.RawMessage `json:"structured"`
		Degraded    bool            `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Degraded)
	require.Nil(t, result.RagAnswer)
	require.NotEmpty(t, result.AnswerError)
	require.Equal(t, "note summary", result.Summary)
	require.NotEmpty(t, result.Structured)
}

func TestFullWorkflowSuccess(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/full_workflow", `{"note": "BP 150/95", "question": ""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "note summary")
	require.Contains(t, rec.Body.String(), "hypertension")
}

func TestAgentEndpointExtractsAndMaps(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/agent", `{"note": "BP 150/95, known hypertension"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hypertension")
	require.Contains(t, rec.Body.String(), `"Bundle"`)
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestErrorResponsesCarryHTTPStatus(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/documents/no-such-id", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, errcode.ErrNotFound, decodeEnvelope(t, rec).Code)

	rec = doJSON(t, engine, http.MethodDelete, "/api/v1/documents/no-such-id", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/documents", `{"title": "   ", "content": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, errcode.ErrInvalid, decodeEnvelope(t, rec).Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/summarize", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderOutageMapsToBadGateway(t *testing.T) {
	engine := setupRouter(t, &routerGateway{summarizeErr: ai.ErrUnavailable})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/summarize", `{"text": "BP 150/95 today"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, errcode.ErrAIUnavailable, decodeEnvelope(t, rec).Code)
}

func TestFullWorkflowGroundsAnswerOnUploadedGuideline(t *testing.T) {
	engine := setupRouter(t, &routerGateway{})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/documents",
		`{"title": "Guideline A", "content": "For stage 2 hypertension, start two first-line agents."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/full_workflow",
		`{"note": "58yo male, BP 165/100 on two readings.", "question": "What do the guidelines recommend?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Summary       string          `json:"summary"`
		RagAnswer     *string         `json:"rag_answer"`
		UsedDocuments []string        `json:"used_documents"`
		Structured    json.RawMessage `json:"structured"`
		Fhir          json.RawMessage `json:"fhir"`
		Usage         ai.Usage        `json:"usage"`
		Degraded      bool            `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	require.False(t, result.Degraded)
	require.Equal(t, "note summary", result.Summary)
	require.NotNil(t, result.RagAnswer)
	require.Equal(t, "grounded answer", *result.RagAnswer)
	require.Contains(t, result.UsedDocuments, created.ID)
	require.Contains(t, string(result.Structured), "hypertension")
	require.Contains(t, string(result.Fhir), "condition-1")
	require.Contains(t, string(result.Fhir), "Patient/patient-1")

	// Summarize 10/5, extraction 30/15, answering 20/10 and the query
	// embedding 3/0 all land in one aggregate.
	require.Equal(t, int64(63), result.Usage.InputTokens)
	require.Equal(t, int64(30), result.Usage.OutputTokens)
	require.Equal(t, result.Usage.InputTokens+result.Usage.OutputTokens, result.Usage.TotalTokens)
}
