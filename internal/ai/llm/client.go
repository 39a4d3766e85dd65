package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider represents the LLM provider type
type Provider string

const (
	ProviderClaude   Provider = "claude"
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
	ProviderGemini   Provider = "gemini"
)

// ClientConfig holds LLM client configuration
type ClientConfig struct {
	Provider    Provider      `json:"provider"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultClientConfig returns default configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Provider:    ProviderGemini,
		Model:       "gemini-2.5-flash-lite",
		MaxTokens:   1024,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
	}
}

// Client is the LLM API client
type Client struct {
	config     *ClientConfig
	httpClient *http.Client

	// Overridable for tests
	claudeURL   string
	openAIURL   string
	deepSeekURL string
	geminiURL   string
}

// NewClient creates a new LLM client
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		claudeURL:   "https://api.anthropic.com/v1/messages",
		openAIURL:   "https://api.openai.com/v1/chat/completions",
		deepSeekURL: "https://api.deepseek.com/v1/chat/completions",
		geminiURL:   "https://generativelanguage.googleapis.com/v1beta/models",
	}
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeRequest represents a Claude API request
type ClaudeRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
}

// ClaudeResponse represents a Claude API response
type ClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIRequest represents an OpenAI-compatible chat request
type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// OpenAIResponse represents an OpenAI-compatible chat response
type OpenAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GeminiRequest represents a Gemini generateContent request
type GeminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

// GeminiResponse represents a Gemini generateContent response
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a completion request to the configured provider
func (c *Client) Complete(systemPrompt, userPrompt string) (string, error) {
	switch c.config.Provider {
	case ProviderClaude:
		return c.completeClaude(systemPrompt, userPrompt)
	case ProviderOpenAI:
		return c.completeOpenAI(systemPrompt, userPrompt, c.openAIURL)
	case ProviderDeepSeek:
		return c.completeOpenAI(systemPrompt, userPrompt, c.deepSeekURL)
	case ProviderGemini:
		return c.completeGemini(systemPrompt, userPrompt)
	default:
		return "", fmt.Errorf("unsupported provider: %s", c.config.Provider)
	}
}

func (c *Client) completeClaude(systemPrompt, userPrompt string) (string, error) {
	req := ClaudeRequest{
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		System:      systemPrompt,
		Messages: []Message{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.claudeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	respBody, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var claudeResp ClaudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if claudeResp.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", claudeResp.Error.Type, claudeResp.Error.Message)
	}
	if len(claudeResp.Content) == 0 {
		return "", fmt.Errorf("empty response from Claude")
	}
	return claudeResp.Content[0].Text, nil
}

// completeOpenAI handles both OpenAI and the OpenAI-compatible DeepSeek API
func (c *Client) completeOpenAI(systemPrompt, userPrompt, endpoint string) (string, error) {
	req := OpenAIRequest{
		Model: c.config.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	respBody, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var openAIResp OpenAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if openAIResp.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", openAIResp.Error.Type, openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from provider")
	}
	return openAIResp.Choices[0].Message.Content, nil
}

func (c *Client) completeGemini(systemPrompt, userPrompt string) (string, error) {
	var req GeminiRequest
	req.Contents = append(req.Contents, struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}{
		Parts: []struct {
			Text string `json:"text"`
		}{
			{Text: systemPrompt + "\n\n" + userPrompt},
		},
	})
	req.GenerationConfig.Temperature = c.config.Temperature
	req.GenerationConfig.MaxOutputTokens = c.config.MaxTokens

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.geminiURL, c.config.Model, c.config.APIKey)
	httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("API error: %d - %s", geminiResp.Error.Code, geminiResp.Error.Message)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
