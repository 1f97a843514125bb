package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsMerger/internal/config"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/ports"
)

// maxContentRunes bounds the article text placed in the prompt.
const maxContentRunes = 8000

// ChatGPTClient implements ports.Analyzer backed by OpenAI-compatible chat APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Analyzer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.LLMConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze asks the model for the structured fields of one article.
func (c *ChatGPTClient) Analyze(ctx context.Context, article domain.DeduplicatedArticle, content string) (domain.Analysis, error) {
	if c == nil {
		return domain.Analysis{}, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Analysis{}, fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: buildPrompt(article, content)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("send analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Analysis{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if parsed.Error != nil {
		return domain.Analysis{}, fmt.Errorf("chatgpt error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return domain.Analysis{}, fmt.Errorf("chatgpt returned no choices")
	}

	analysis, err := DecodeAnalysis(parsed.Choices[0].Message.Content)
	if err != nil {
		return domain.Analysis{}, err
	}
	if analysis.FullText == "" {
		analysis.FullText = strings.TrimSpace(content)
	}
	return analysis, nil
}

func buildPrompt(article domain.DeduplicatedArticle, content string) string {
	if runes := []rune(content); len(runes) > maxContentRunes {
		content = string(runes[:maxContentRunes])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Article Title: %s\n", article.Title)
	fmt.Fprintf(&b, "Article Summary: %s\n", article.Summary)
	fmt.Fprintf(&b, "Source: %s (%s)\n\n", article.SourceName, article.URL)
	b.WriteString("Article Content:\n")
	b.WriteString(content)
	b.WriteString("\n\nReturn one JSON object with the keys: title, summary, full_text, category, ")
	b.WriteString("sentiment (positive|negative|neutral), importance_level (integer 1-10), keywords (array of strings), ")
	b.WriteString("date_time (ISO 8601 if present), location, ")
	b.WriteString("named_entities {people, organizations, locations} (arrays of strings), thumbnail_url, language.")
	return b.String()
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a news analysis expert. Reply with a single valid JSON object and nothing else."
	}
	return prompt
}
