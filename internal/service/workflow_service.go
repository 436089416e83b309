package service

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/fhir"
	"github.com/opencarelabs/clinicore/internal/model"
)

type noteSummarizer interface {
	Summarize(ctx context.Context, note string) (string, ai.Usage, error)
}

type questionAnswerer interface {
	Answer(ctx context.Context, question string, note string) (*RagAnswer, error)
}

type recordExtractor interface {
	Extract(ctx context.Context, note string) (*model.ClinicalRecord, ai.Usage, error)
}

type WorkflowResult struct {
	Summary       string                `json:"summary"`
	RagAnswer     *string               `json:"rag_answer"`
	AnswerError   string                `json:"answer_error,omitempty"`
	UsedDocuments []string              `json:"used_documents,omitempty"`
	Record        *model.ClinicalRecord `json:"structured"`
	Bundle        *fhir.Bundle          `json:"fhir"`
	Usage         ai.Usage              `json:"usage"`
	// Degraded marks a partial success: the RAG answer failed but the
	// rest of the pipeline completed.
	Degraded bool `json:"degraded,omitempty"`
}

type AgentResult struct {
	Record *model.ClinicalRecord `json:"structured"`
	Bundle *fhir.Bundle          `json:"fhir"`
	Usage  ai.Usage              `json:"usage"`
}

// WorkflowService sequences summarization, retrieval-augmented answering,
// extraction, and FHIR mapping into one invocation with aggregated token
// accounting.
type WorkflowService struct {
	summarizer noteSummarizer
	answerer   questionAnswerer
	extractor  recordExtractor
}

func NewWorkflowService(summarizer noteSummarizer, answerer questionAnswerer, extractor recordExtractor) *WorkflowService {
	return &WorkflowService{
		summarizer: summarizer,
		answerer:   answerer,
		extractor:  extractor,
	}
}

// RunFull executes the whole pipeline. Summarization, extraction, and the
// optional question answering are mutually independent and run
// concurrently; mapping waits for extraction. A summarization or
// extraction failure fails the workflow. A question-answering failure only
// degrades it: completed work is kept and the answer is marked failed.
func (s *WorkflowService) RunFull(ctx context.Context, note string, question string) (*WorkflowResult, error) {
	result := &WorkflowResult{}

	var (
		usageMu    sync.Mutex
		totalUsage ai.Usage
	)
	addUsage := func(usage ai.Usage) {
		usageMu.Lock()
		totalUsage = totalUsage.Add(usage)
		usageMu.Unlock()
	}

	var record *model.ClinicalRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, usage, err := s.summarizer.Summarize(gctx, note)
		if err != nil {
			return err
		}
		addUsage(usage)
		result.Summary = summary
		return nil
	})
	g.Go(func() error {
		extracted, usage, err := s.extractor.Extract(gctx, note)
		addUsage(usage)
		if err != nil {
			return err
		}
		record = extracted
		return nil
	})

	// The RAG branch runs outside the errgroup: its failure must not
	// cancel the required branches.
	var (
		ragWait   sync.WaitGroup
		ragAnswer *RagAnswer
		ragErr    error
	)
	if question != "" {
		ragWait.Add(1)
		go func() {
			defer ragWait.Done()
			ragAnswer, ragErr = s.answerer.Answer(ctx, question, note)
			if ragAnswer != nil {
				addUsage(ragAnswer.Usage)
			}
		}()
	}

	err := g.Wait()
	ragWait.Wait()
	result.Usage = totalUsage
	if err != nil {
		return nil, err
	}

	result.Record = record
	result.Bundle = fhir.MapRecord(record)

	switch {
	case question == "":
		// No question asked: the answer stays null and nothing is degraded.
	case ragErr != nil:
		logutil.GetLogger(ctx).Warn("rag answer failed, returning degraded result", zap.Error(ragErr))
		result.Degraded = true
		result.AnswerError = "question answering failed: upstream provider error"
	default:
		result.RagAnswer = &ragAnswer.Answer
		result.UsedDocuments = ragAnswer.UsedDocuments
	}
	return result, nil
}

// RunAgent is the extraction + mapping subset used by the /agent endpoint.
func (s *WorkflowService) RunAgent(ctx context.Context, note string) (*AgentResult, error) {
	record, usage, err := s.extractor.Extract(ctx, note)
	if err != nil {
		return nil, err
	}
	return &AgentResult{
		Record: record,
		Bundle: fhir.MapRecord(record),
		Usage:  usage,
	}, nil
}
