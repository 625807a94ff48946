package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates an OpenAI provider. baseURL may be empty.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model, name: "openai"}
}

// NewOllamaProvider uses Ollama's OpenAI-compatible API.
func NewOllamaProvider(baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llava"
	}
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model, name: "ollama"}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return p.name }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.Image) > 0 {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(req.Image, req.MIMEType),
					Detail: openai.ImageURLDetailHigh,
				},
			},
		}
	} else {
		msg.Content = req.Prompt
	}

	creq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: 0,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", classify(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
