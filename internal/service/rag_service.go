package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/model"
	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
)

// noContextAnswer is returned without a model call when the document store
// is empty: better to admit there is nothing to ground on than to let the
// model improvise.
const noContextAnswer = "I don't know based on the provided information. No reference documents have been uploaded."

type ScoredDocument struct {
	Document model.Document `json:"document"`
	Score    float32        `json:"score"`
}

type RagAnswer struct {
	Answer        string   `json:"answer"`
	UsedDocuments []string `json:"used_documents"`
	Usage         ai.Usage `json:"usage"`
}

type RagService struct {
	store      DocumentStore
	gw         Gateway
	topK       int
	queryCache *expirable.LRU[string, []float32]
}

func NewRagService(store DocumentStore, gw Gateway, topK int) *RagService {
	if topK <= 0 {
		topK = 3
	}
	return &RagService{
		store:      store,
		gw:         gw,
		topK:       topK,
		queryCache: expirable.NewLRU[string, []float32](1000, nil, 30*time.Minute),
	}
}

// Retrieve embeds the query and ranks every stored document by cosine
// similarity. Brute force over the whole store: the corpus is small and
// document-level, so no index is maintained. Ties break by creation order.
func (s *RagService) Retrieve(ctx context.Context, query string, topK int) ([]ScoredDocument, ai.Usage, error) {
	query, err := cleanInput(query, s.gw.MaxInputChars())
	if err != nil {
		return nil, ai.Usage{}, err
	}
	if topK <= 0 {
		topK = s.topK
	}

	items, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return nil, ai.Usage{}, err
	}
	if len(items) == 0 {
		return []ScoredDocument{}, ai.Usage{}, nil
	}

	queryEmb, usage, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, ai.Usage{}, err
	}

	type match struct {
		docID string
		score float32
	}
	matches := make([]match, 0, len(items))
	for _, item := range items {
		matches = append(matches, match{docID: item.DocumentID, score: cosineSimilarity(queryEmb, item.Embedding)})
	}
	// items arrive in creation order; the stable sort keeps that order for
	// equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if topK > len(matches) {
		topK = len(matches)
	}

	results := make([]ScoredDocument, 0, topK)
	for _, m := range matches[:topK] {
		doc, err := s.store.Get(ctx, m.docID)
		if err != nil {
			if appErr.IsNotFound(err) {
				// Deleted between scan and fetch.
				continue
			}
			return nil, usage, err
		}
		logutil.GetLogger(ctx).Debug("retrieval match", zap.String("doc_id", m.docID), zap.Float32("score", m.score))
		results = append(results, ScoredDocument{Document: *doc, Score: m.score})
	}
	return results, usage, nil
}

// Answer runs retrieval-augmented question answering. The optional note is
// passed through so the model can apply retrieved guidance to the case at
// hand. On failure the returned RagAnswer still carries the usage already
// spent, so aggregating callers keep their token accounting exact.
func (s *RagService) Answer(ctx context.Context, question string, note string) (*RagAnswer, error) {
	scored, usage, err := s.Retrieve(ctx, question, s.topK)
	if err != nil {
		return &RagAnswer{Usage: usage}, err
	}
	if len(scored) == 0 {
		return &RagAnswer{
			Answer:        noContextAnswer,
			UsedDocuments: []string{},
			Usage:         usage,
		}, nil
	}

	contexts := make([]ai.ContextDocument, 0, len(scored))
	usedIDs := make([]string, 0, len(scored))
	for _, item := range scored {
		contexts = append(contexts, ai.ContextDocument{
			ID:      item.Document.ID,
			Title:   item.Document.Title,
			Content: item.Document.Content,
		})
		usedIDs = append(usedIDs, item.Document.ID)
	}
	answer, answerUsage, err := s.gw.Answer(ctx, question, note, contexts)
	if err != nil {
		return &RagAnswer{Usage: usage.Add(answerUsage)}, err
	}
	return &RagAnswer{
		Answer:        answer,
		UsedDocuments: usedIDs,
		Usage:         usage.Add(answerUsage),
	}, nil
}

func (s *RagService) embedQuery(ctx context.Context, query string) ([]float32, ai.Usage, error) {
	hash := sha256.Sum256([]byte(query))
	cacheKey := hex.EncodeToString(hash[:])
	if cached, ok := s.queryCache.Get(cacheKey); ok {
		return cached, ai.Usage{}, nil
	}
	res, err := s.gw.Embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, ai.Usage{}, err
	}
	s.queryCache.Add(cacheKey, res.Vector)
	return res.Vector, res.Usage, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
