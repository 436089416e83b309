package service

import (
	"context"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/model"
)

// DocumentStore is the persistence surface the services need. Implemented
// by repo.DocumentRepo.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	List(ctx context.Context) ([]model.Document, error)
	Get(ctx context.Context, id string) (*model.Document, error)
	Delete(ctx context.Context, id string) error
	ListEmbeddings(ctx context.Context) ([]model.DocumentEmbedding, error)
	StoredEmbedDim(ctx context.Context) (int, bool, error)
}

// Gateway is the language-model capability surface. Implemented by
// ai.Manager.
type Gateway interface {
	Summarize(ctx context.Context, note string) (string, ai.Usage, error)
	Answer(ctx context.Context, question string, note string, contexts []ai.ContextDocument) (string, ai.Usage, error)
	ExtractRecord(ctx context.Context, note string) (*model.ClinicalRecord, ai.Usage, error)
	Embed(ctx context.Context, text string, taskType string) (*ai.EmbedResult, error)
	MaxInputChars() int
	EmbeddingModelName() string
}
