package service

import (
	"context"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

// suggester is the minimal shape SuggestionService needs from the LLM
// adapter (internal/adapters/suggest.Client satisfies it).
type suggester interface {
	SuggestTracks(ctx context.Context, currentTracks []pipeline.AudioMetadata) ([]pipeline.AudioMetadata, error)
}

// SuggestionService implements the supplemented "suggest more tracks"
// feature (SPEC_FULL.md SUPPLEMENTED FEATURES): read a channel's current
// tracks via the broadcast backend, ask the LLM adapter for similar ones.
type SuggestionService struct {
	broadcast pipeline.BroadcastClient
	suggest   suggester
}

func NewSuggestionService(broadcast pipeline.BroadcastClient, suggest suggester) *SuggestionService {
	return &SuggestionService{broadcast: broadcast, suggest: suggest}
}

// Suggest returns candidate tracks that would fit alongside channel's
// existing playlist. Callers may POST any of these through the regular
// request-creation endpoint.
func (s *SuggestionService) Suggest(ctx context.Context, channel pipeline.ChannelId) ([]pipeline.AudioMetadata, error) {
	current, err := s.broadcast.GetChannelTracks(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.suggest.SuggestTracks(ctx, current)
}
