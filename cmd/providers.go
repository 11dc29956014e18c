package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/relicworks/relic/pkg/provider"
)

// demoResponses keeps the mock provider useful for a config-free test drive:
// each stage gets a plausible structured reply.
var demoResponses = []string{
	`{"summary": "legacy batch program", "components": ["main"], "patterns": [], "dependencies": [], "confidence": 0.7}`,
	`{"code": "// transformed output\n", "notes": ["mock transformation"], "confidence": 0.7}`,
	`{"valid": true, "issues": [], "confidence": 0.7}`,
	`{"explanation": "mock run, no provider configured", "risks": [], "confidence": 0.7}`,
}

func newProvider() (provider.Interface, error) {
	name := viper.GetString("provider.name")
	model := viper.GetString("provider.model")

	switch name {
	case "openai":
		if model != "" {
			return provider.NewOpenAIProvider(provider.WithOpenAIModel(model)), nil
		}
		return provider.NewOpenAIProvider(), nil
	case "anthropic":
		if model != "" {
			return provider.NewAnthropicProvider(provider.WithAnthropicModel(model)), nil
		}
		return provider.NewAnthropicProvider(), nil
	case "ollama":
		if model != "" {
			return provider.NewOllamaProvider(provider.WithOllamaModel(model)), nil
		}
		return provider.NewOllamaProvider(), nil
	case "cohere":
		if model != "" {
			return provider.NewCohereProvider(provider.WithCohereModel(model)), nil
		}
		return provider.NewCohereProvider(), nil
	case "deepseek":
		if model != "" {
			return provider.NewDeepseekProvider(provider.WithDeepseekModel(model)), nil
		}
		return provider.NewDeepseekProvider(), nil
	case "google":
		if model != "" {
			return provider.NewGoogleProvider(provider.WithGoogleModel(model)), nil
		}
		return provider.NewGoogleProvider(), nil
	case "mock", "":
		return provider.NewMockProvider(demoResponses...), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

func newEmbedder(dimension int) (provider.Embedder, error) {
	name := viper.GetString("provider.embedder.name")

	switch name {
	case "openai":
		return provider.NewOpenAIEmbedder(), nil
	case "ollama":
		return provider.NewOllamaEmbedder(), nil
	case "mock", "":
		return provider.NewMockEmbedder(dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
}
