package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/opencarelabs/clinicore/internal/ai"
)

// AIService fronts the plain generation features of the gateway. Summaries
// are cached by content hash: clinical notes are frequently re-submitted
// unchanged.
type AIService struct {
	gw    Gateway
	cache *expirable.LRU[string, string]
}

func NewAIService(gw Gateway) *AIService {
	return &AIService{
		gw:    gw,
		cache: expirable.NewLRU[string, string](10000, nil, 2*time.Hour),
	}
}

func (s *AIService) Summarize(ctx context.Context, note string) (string, ai.Usage, error) {
	note, err := cleanInput(note, s.gw.MaxInputChars())
	if err != nil {
		return "", ai.Usage{}, err
	}
	cacheKey := s.cacheKey("summary", note)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, ai.Usage{}, nil
	}
	summary, usage, err := s.gw.Summarize(ctx, note)
	if err != nil {
		return "", usage, err
	}
	s.cache.Add(cacheKey, summary)
	return summary, usage, nil
}

func (s *AIService) cacheKey(feature, text string) string {
	hash := sha256.Sum256([]byte(text))
	return feature + ":" + hex.EncodeToString(hash[:])
}
