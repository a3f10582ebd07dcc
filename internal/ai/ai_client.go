package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smart-email/internal/logger"
	"smart-email/internal/metrics"
	"smart-email/internal/model"
)

const (
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

type Options struct {
	Provider string
	APIKey   string
	// Model overrides the provider default when set.
	Model string
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	Timeout time.Duration
}

type aiClient struct {
	provider   string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewAIClient returns a JSON-mode client for an OpenAI-compatible or Gemini backend.
func NewAIClient(opts Options, logger *logger.Logger) Client {
	provider := strings.ToLower(opts.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = getBaseURL(provider)
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = getModel(provider)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &aiClient{
		provider:   provider,
		apiKey:     opts.APIKey,
		model:      modelName,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// getBaseURL returns the appropriate API base URL based on the provider
func getBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	default:
		return "https://api.openai.com/v1"
	}
}

// getModel returns the appropriate model based on the provider
func getModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.0-flash-lite"
	default:
		return "gpt-4o-mini"
	}
}

// OpenAI/DeepSeek API request/response structures
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Gemini API request/response structures
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (a *aiClient) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
	start := time.Now()
	prompt := buildPrompt(req)

	var text string
	var err error
	switch a.provider {
	case ProviderGemini:
		text, err = a.completeWithGemini(ctx, prompt)
	default:
		text, err = a.completeWithOpenAIStyle(ctx, prompt)
	}

	var resp model.ClassificationResponse
	if err == nil {
		resp, err = decodeOutput(text)
	}
	metrics.RecordClassify(a.provider, err, time.Since(start))
	if err != nil {
		return model.ClassificationResponse{}, fmt.Errorf("failed to classify email: %w", err)
	}

	a.logger.Debugf("classified email as %s (urgency %d)", resp.Category, resp.Urgency)
	return resp, nil
}

func (a *aiClient) completeWithOpenAIStyle(ctx context.Context, prompt string) (string, error) {
	request := chatCompletionRequest{
		Model:          a.model,
		Messages:       []message{{Role: "user", Content: prompt}},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var resp chatCompletionResponse
	if err := a.postJSON(ctx, a.baseURL+"/chat/completions", request, &resp, map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from AI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *aiClient) completeWithGemini(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{ResponseMimeType: "application/json"},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, a.model, url.QueryEscape(a.apiKey))
	var resp geminiResponse
	if err := a.postJSON(ctx, endpoint, request, &resp, nil); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("no content parts in Gemini response")
	}
	return parts[0].Text, nil
}

func (a *aiClient) postJSON(ctx context.Context, endpoint string, body, out interface{}, headers map[string]string) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s API request failed with status %d: %s", a.provider, resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
