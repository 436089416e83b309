package service

import (
	"context"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/coding"
	"github.com/opencarelabs/clinicore/internal/model"
)

// AgentService extracts a structured clinical record from a raw note and
// enriches it with terminology codes.
type AgentService struct {
	gw       Gateway
	resolver *coding.Resolver
}

func NewAgentService(gw Gateway, resolver *coding.Resolver) *AgentService {
	return &AgentService{gw: gw, resolver: resolver}
}

func (s *AgentService) Extract(ctx context.Context, note string) (*model.ClinicalRecord, ai.Usage, error) {
	note, err := cleanInput(note, s.gw.MaxInputChars())
	if err != nil {
		return nil, ai.Usage{}, err
	}
	record, usage, err := s.gw.ExtractRecord(ctx, note)
	if err != nil {
		return nil, usage, err
	}
	if s.resolver != nil {
		s.resolver.Enrich(ctx, record)
	}
	return record, usage, nil
}
