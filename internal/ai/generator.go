package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Generator is a client for the OpenAI chat completions API, used to
// produce Italian example sentences for newly added words.
type Generator struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewGenerator creates a sentence generator with the given API key
func NewGenerator(apiKey string) *Generator {
	return &Generator{
		apiKey:      apiKey,
		apiURL:      "https://api.openai.com/v1/chat/completions",
		model:       "gpt-4o-mini",
		maxTokens:   150,
		temperature: 0.7,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Message represents a message in the chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the chat completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExampleSentences generates two short Italian example sentences for a
// word, each followed by its English translation.
func (g *Generator) ExampleSentences(ctx context.Context, english, italian string) (string, error) {
	prompt := fmt.Sprintf(
		"Write two short, everyday Italian sentences that naturally use the word '%s' (English: '%s'). "+
			"After each Italian sentence add the English translation in parentheses. "+
			"Keep the sentences simple, suitable for a beginner. Return only the sentences.",
		italian, english,
	)
	messages := []Message{
		{Role: "system", Content: "You are an assistant for learning Italian vocabulary. You write short, natural example sentences for a given word."},
		{Role: "user", Content: prompt},
	}
	return g.complete(ctx, messages, g.temperature)
}

// complete sends one chat completion request and returns the trimmed
// first choice
func (g *Generator) complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	request := ChatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: temperature,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
