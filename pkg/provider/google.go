package provider

import (
	"context"

	"github.com/charmbracelet/log"
	genai "google.golang.org/genai"
)

/*
GoogleProvider is a provider for the Gemini API. The client picks up
GOOGLE_API_KEY from the environment.
*/
type GoogleProvider struct {
	client *genai.Client
	model  string
}

type GoogleProviderOption func(*GoogleProvider)

func NewGoogleProvider(options ...GoogleProviderOption) *GoogleProvider {
	prvdr := &GoogleProvider{
		model: "gemini-2.0-flash",
	}

	for _, option := range options {
		option(prvdr)
	}

	if prvdr.client == nil {
		WithGoogleClient()(prvdr)
	}

	return prvdr
}

func (prvdr *GoogleProvider) Generate(
	ctx context.Context, prompt string, params Params,
) (string, error) {
	model := params.Model
	if model == "" {
		model = prvdr.model
	}

	config := &genai.GenerateContentConfig{}
	if params.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: params.SystemPrompt}},
		}
	}
	if params.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(params.Temperature))
	}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxTokens)
	}

	resp, err := prvdr.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func WithGoogleClient() GoogleProviderOption {
	return func(prvdr *GoogleProvider) {
		client, err := genai.NewClient(context.Background(), nil)
		if err != nil {
			log.Error("failed to create gemini client", "error", err)
			return
		}
		prvdr.client = client
	}
}

func WithGoogleModel(model string) GoogleProviderOption {
	return func(prvdr *GoogleProvider) {
		prvdr.model = model
	}
}
