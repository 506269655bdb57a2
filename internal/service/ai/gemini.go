package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// GeminiCompleter implements Completer using Google's Gemini API.
type GeminiCompleter struct {
	client  *genai.Client
	modelID string
}

// NewGeminiCompleter creates a new Gemini client for the given model.
func NewGeminiCompleter(ctx context.Context, apiKey, modelID string) (*GeminiCompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ai: failed to create gemini client: %w", err)
	}

	return &GeminiCompleter{client: client, modelID: modelID}, nil
}

// Generate sends a single-turn request and returns the answer text.
func (c *GeminiCompleter) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &RemoteCallError{Provider: providerGemini, Err: err}
	}
	if len(resp.Candidates) == 0 {
		return "", &RemoteCallError{Provider: providerGemini, Err: errors.New("no candidates returned")}
	}
	return responseText(resp), nil
}

// Stream 使用 GenerateContentStream 逐块返回答案。
func (c *GeminiCompleter) Stream(ctx context.Context, prompt string, onDelta func(string)) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))

	var answer strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", &RemoteCallError{Provider: providerGemini, Err: err}
		}

		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		answer.WriteString(chunk)
		if onDelta != nil {
			onDelta(chunk)
		}
	}
	return answer.String(), nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiCompleter) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
