package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/model"
)

type documentReindexer interface {
	ListByEmbedModelNot(ctx context.Context, embedModel string, limit int) ([]model.Document, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32, embedModel string) error
	Count(ctx context.Context) (int, error)
}

type embedder interface {
	Embed(ctx context.Context, text string, taskType string) (*ai.EmbedResult, error)
	EmbeddingModelName() string
}

// EmbeddingReindexJob re-embeds documents whose stored embedding was
// produced by a model other than the configured one. Switching the
// embedding model is the only sanctioned way to change the store's
// dimensionality; this job carries out that migration in the background.
type EmbeddingReindexJob struct {
	repo  documentReindexer
	gw    embedder
	batch int
}

func NewEmbeddingReindexJob(repo documentReindexer, gw embedder, batch int) *EmbeddingReindexJob {
	if batch <= 0 {
		batch = 16
	}
	return &EmbeddingReindexJob{repo: repo, gw: gw, batch: batch}
}

func (j *EmbeddingReindexJob) Name() string {
	return "embedding_reindex"
}

func (j *EmbeddingReindexJob) Run(ctx context.Context) error {
	current := j.gw.EmbeddingModelName()
	docs, err := j.repo.ListByEmbedModelNot(ctx, current, j.batch)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("embed_model", current))
	var lastErr error
	reindexed := 0
	for _, doc := range docs {
		res, err := j.gw.Embed(ctx, doc.Title+"\n"+doc.Content, "RETRIEVAL_DOCUMENT")
		if err != nil {
			logger.Warn("reindex embed failed", zap.String("doc_id", doc.ID), zap.Error(err))
			lastErr = err
			continue
		}
		if err := j.repo.UpdateEmbedding(ctx, doc.ID, res.Vector, current); err != nil {
			logger.Warn("reindex update failed", zap.String("doc_id", doc.ID), zap.Error(err))
			lastErr = err
			continue
		}
		reindexed++
	}
	total, err := j.repo.Count(ctx)
	if err != nil {
		logger.Warn("count documents failed", zap.Error(err))
		total = -1
	}
	logger.Info("reindex batch done",
		zap.Int("candidates", len(docs)),
		zap.Int("reindexed", reindexed),
		zap.Int("total_documents", total),
	)
	return lastErr
}
