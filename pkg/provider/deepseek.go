package provider

import (
	"context"
	"fmt"
	"os"

	deepseek "github.com/cohesion-org/deepseek-go"
)

/*
DeepseekProvider is a provider for the DeepSeek chat completion API.
*/
type DeepseekProvider struct {
	client *deepseek.Client
	model  string
}

type DeepseekProviderOption func(*DeepseekProvider)

func NewDeepseekProvider(options ...DeepseekProviderOption) *DeepseekProvider {
	prvdr := &DeepseekProvider{
		model: deepseek.DeepSeekChat,
	}

	for _, option := range options {
		option(prvdr)
	}

	if prvdr.client == nil {
		WithDeepseekClient()(prvdr)
	}

	return prvdr
}

func (prvdr *DeepseekProvider) Generate(
	ctx context.Context, prompt string, params Params,
) (string, error) {
	model := params.Model
	if model == "" {
		model = prvdr.model
	}

	messages := []deepseek.ChatCompletionMessage{}
	if params.SystemPrompt != "" {
		messages = append(messages, deepseek.ChatCompletionMessage{
			Role:    deepseek.ChatMessageRoleSystem,
			Content: params.SystemPrompt,
		})
	}
	messages = append(messages, deepseek.ChatCompletionMessage{
		Role:    deepseek.ChatMessageRoleUser,
		Content: prompt,
	})

	req := &deepseek.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if params.Temperature > 0 {
		req.Temperature = float32(params.Temperature)
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = int(params.MaxTokens)
	}

	resp, err := prvdr.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func WithDeepseekClient() DeepseekProviderOption {
	return func(prvdr *DeepseekProvider) {
		prvdr.client = deepseek.NewClient(os.Getenv("DEEPSEEK_API_KEY"))
	}
}

func WithDeepseekModel(model string) DeepseekProviderOption {
	return func(prvdr *DeepseekProvider) {
		prvdr.model = model
	}
}
