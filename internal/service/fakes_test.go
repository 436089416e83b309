package service_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/model"
	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	docs []*model.Document
}

func (s *fakeStore) Create(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.docs = append(s.docs, &copied)
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.ID == id {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range s.docs {
		if doc.ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (s *fakeStore) ListEmbeddings(ctx context.Context) ([]model.DocumentEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DocumentEmbedding, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.Embedding == nil {
			continue
		}
		out = append(out, model.DocumentEmbedding{DocumentID: doc.ID, Embedding: doc.Embedding, Ctime: doc.Ctime})
	}
	return out, nil
}

func (s *fakeStore) StoredEmbedDim(ctx context.Context) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if len(doc.Embedding) > 0 {
			return len(doc.Embedding), true, nil
		}
	}
	return 0, false, nil
}

// fakeGateway embeds by lookup table and answers with canned text. Every
// call is counted so tests can assert on what was actually invoked.
type fakeGateway struct {
	mu            sync.Mutex
	embeddings    map[string][]float32
	defaultVector []float32
	embedErr      error
	answerText    string
	answerErr     error
	embedCalls    int
	answerCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		embeddings:    map[string][]float32{},
		defaultVector: []float32{1, 0, 0},
		answerText:    "canned answer",
	}
}

func (g *fakeGateway) Summarize(ctx context.Context, note string) (string, ai.Usage, error) {
	return "summary of: " + note, ai.NewUsage(10, 5), nil
}

func (g *fakeGateway) Answer(ctx context.Context, question string, note string, contexts []ai.ContextDocument) (string, ai.Usage, error) {
	g.mu.Lock()
	g.answerCalls++
	g.mu.Unlock()
	if g.answerErr != nil {
		return "", ai.Usage{}, g.answerErr
	}
	return g.answerText, ai.NewUsage(20, 10), nil
}

func (g *fakeGateway) ExtractRecord(ctx context.Context, note string) (*model.ClinicalRecord, ai.Usage, error) {
	return &model.ClinicalRecord{}, ai.NewUsage(30, 15), nil
}

func (g *fakeGateway) Embed(ctx context.Context, text string, taskType string) (*ai.EmbedResult, error) {
	g.mu.Lock()
	g.embedCalls++
	g.mu.Unlock()
	if g.embedErr != nil {
		return nil, g.embedErr
	}
	vec, ok := g.embeddings[text]
	if !ok {
		vec = g.defaultVector
	}
	return &ai.EmbedResult{Vector: vec, Usage: ai.NewUsage(3, 0)}, nil
}

func (g *fakeGateway) MaxInputChars() int {
	return 100000
}

func (g *fakeGateway) EmbeddingModelName() string {
	return "fake-embed-001"
}

func (g *fakeGateway) embedCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.embedCalls
}

func seedDoc(s *fakeStore, id string, ctime int64, embedding []float32) {
	_ = s.Create(context.Background(), &model.Document{
		ID:        id,
		Title:     fmt.Sprintf("title %s", id),
		Content:   fmt.Sprintf("content %s", id),
		Embedding: embedding,
		EmbedDim:  len(embedding),
		Ctime:     ctime,
	})
}
