// Package suggest implements the "suggest more tracks" helper: given a
// channel's current playlist, ask an OpenAI-compatible chat-completion
// endpoint for a handful of tracks that would fit alongside it.
//
// No pack dependency wraps an LLM chat API, so this adapter is a minimal
// stdlib net/http client instead (see DESIGN.md).
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

const systemPrompt = `The user will provide you with a list of audio tracks. One track per each line.

Suggest 2 new audio tracks to that list that will ideally fit existing ones in terms of vibe and mood.

Provide a response as an array of objects with fields: "title", "artist" and "album". Without any additional comments and descriptions.`

// Client is grounded directly on the original's OpenAIService: a single
// POST to "/v1/chat/completions" with a fixed system prompt, translated
// verbatim from original_source/src/services/openai_service.rs.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SuggestTracks asks the LLM for new tracks that fit alongside the given
// playlist, returning candidate AudioMetadata the caller may then request
// through the regular pipeline.
func (c *Client) SuggestTracks(ctx context.Context, currentTracks []pipeline.AudioMetadata) ([]pipeline.AudioMetadata, error) {
	lines := make([]string, len(currentTracks))
	for i, t := range currentTracks {
		lines[i] = fmt.Sprintf("%s - %s", t.Artist, t.Title)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: strings.Join(lines, "\n")},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("suggest: status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, nil
	}

	var suggestions []pipeline.AudioMetadata
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &suggestions); err != nil {
		// The model didn't return parseable JSON; treat as no suggestions
		// rather than a hard failure, matching the original's unwrap_or_default.
		return nil, nil
	}
	return suggestions, nil
}
