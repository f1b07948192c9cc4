package inspect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/umputun/feedscout/pkg/config"
	"github.com/umputun/feedscout/pkg/domain"
)

// LLMInspector scores candidate content with an OpenAI-compatible model.
// It fetches page text the same way the keyword inspector does and asks the
// model for a single topical relevance value.
type LLMInspector struct {
	client  *openai.Client
	cfg     config.InspectionConfig
	keyword *KeywordInspector // reused for page fetching
}

const systemPrompt = `You evaluate whether a web source is topically relevant to a user's interests.
Respond with a single number between 0.00 and 1.00 where 0 means unrelated and 1 means a perfect topical match.
Respond with the number only, no explanation.`

// NewLLMInspector creates an LLM-backed content inspector
func NewLLMInspector(cfg config.InspectionConfig) *LLMInspector {
	clientConfig := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.Endpoint != "" {
		clientConfig.BaseURL = cfg.LLM.Endpoint
	}

	return &LLMInspector{
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		keyword: NewKeywordInspector(cfg.Timeout),
	}
}

// Inspect asks the model to rate the candidate against the interests.
// The response must be a bare number in [0,1], anything else is an error
// which the scorer degrades to a zero content signal.
func (l *LLMInspector) Inspect(ctx context.Context, candidate domain.CandidateSource, interests []string) (float64, error) {
	if len(interests) == 0 {
		return 0, nil
	}

	text := ""
	if candidate.Kind == domain.KindBlog {
		if fetched, err := l.keyword.fetchText(ctx, candidate.Identity); err == nil {
			text = fetched
		}
	}

	prompt := l.buildPrompt(candidate, interests, text)

	ctx, cancel := context.WithTimeout(ctx, l.cfg.LLM.Timeout)
	defer cancel()

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.cfg.LLM.Model,
		Temperature: float32(l.cfg.LLM.Temperature),
		MaxTokens:   10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from llm")
	}

	return parseScore(resp.Choices[0].Message.Content)
}

// buildPrompt assembles the rating request for a single candidate
func (l *LLMInspector) buildPrompt(candidate domain.CandidateSource, interests []string, text string) string {
	var sb strings.Builder
	sb.WriteString("User interests: ")
	sb.WriteString(strings.Join(interests, ", "))
	sb.WriteString("\n\nSource: ")
	sb.WriteString(candidate.Identity)
	if candidate.Name != "" {
		sb.WriteString(" (")
		sb.WriteString(candidate.Name)
		sb.WriteString(")")
	}
	if text != "" {
		// cap page text to keep the request small
		if len(text) > 4000 {
			text = text[:4000]
		}
		sb.WriteString("\n\nPage content:\n")
		sb.WriteString(text)
	}
	return sb.String()
}

// parseScore extracts the numeric rating from the model response
func parseScore(content string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return 0, fmt.Errorf("parse llm score %q: %w", content, err)
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("llm score %.2f outside [0,1]", score)
	}
	return score, nil
}
