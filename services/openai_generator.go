package services

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"

	"health-assistant-backend/models"
)

type OpenAIGenerator struct {
	client *openai.Client
	model  string
	apiKey string
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator accepts any OpenAI compatible endpoint through baseURL.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  model,
		apiKey: apiKey,
	}
}

func (g *OpenAIGenerator) Available() bool {
	return g.apiKey != ""
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, history []models.Turn, domain DomainContext) (string, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemInstruction(domain)},
	}
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", g.model))
	}
	if len(resp.Choices) == 0 {
		return "", goerr.New("no choices returned", goerr.V("model", g.model))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", goerr.New("empty completion", goerr.V("model", g.model))
	}
	return text, nil
}
