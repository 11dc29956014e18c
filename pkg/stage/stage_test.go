package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicworks/relic/pkg/provider"
)

func TestAnalyzer_EmptySourceIsFormatError(t *testing.T) {
	analyzer := NewAnalyzer(provider.NewMockProvider())
	result := analyzer.Execute(context.Background(), Input{Source: "   "}, Context{})

	require.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, KindFormat, result.Err.Kind)
}

func TestAnalyzer_Success(t *testing.T) {
	analyzer := NewAnalyzer(provider.NewMockProvider(
		`{"summary": "COBOL batch job", "components": ["reader"], "confidence": 0.85}`,
	))

	var messages []string
	result := analyzer.Execute(context.Background(), Input{
		Source:   "IDENTIFICATION DIVISION.",
		Language: "cobol",
	}, Context{OnProgress: func(message string) { messages = append(messages, message) }})

	require.True(t, result.Success)
	assert.Equal(t, "COBOL batch job", result.Data["summary"])
	assert.Equal(t, 0.85, result.Confidence)
	assert.NotEmpty(t, messages)
}

func TestAnalyzer_ChunkedMarksPartial(t *testing.T) {
	analyzer := NewAnalyzer(provider.NewMockProvider(`{"summary": "head only", "confidence": 0.7}`))

	source := strings.Repeat("MOVE A TO B.\n", chunkLines+50)
	result := analyzer.Execute(context.Background(), Input{Source: source}, Context{Chunked: true})

	require.True(t, result.Success)
	assert.Equal(t, true, result.Data["partial"])
}

func TestAnalyzer_ProviderErrorIsClassified(t *testing.T) {
	analyzer := NewAnalyzer(&provider.MockProvider{Err: errors.New("rate limit exceeded")})
	result := analyzer.Execute(context.Background(), Input{Source: "x"}, Context{})

	require.False(t, result.Success)
	assert.Equal(t, KindRateLimit, result.Err.Kind)
}

func TestTransformer_RequiresTargetLanguage(t *testing.T) {
	transformer := NewTransformer(provider.NewMockProvider())
	result := transformer.Execute(context.Background(), Input{Source: "x"}, Context{})

	require.False(t, result.Success)
	assert.Equal(t, KindFormat, result.Err.Kind)
}

func TestTransformer_Success(t *testing.T) {
	transformer := NewTransformer(provider.NewMockProvider(
		`{"code": "func main() {}", "confidence": 0.8}`,
	))

	result := transformer.Execute(context.Background(), Input{
		Source:         "PROGRAM-ID. PAYROLL.",
		Language:       "cobol",
		TargetLanguage: "go",
		Prior: map[Name]map[string]any{
			Analyze: {"summary": "payroll batch"},
		},
	}, Context{})

	require.True(t, result.Success)
	assert.Equal(t, "func main() {}", result.Data["code"])
}

func TestValidator_RequiresTransformOutput(t *testing.T) {
	validator := NewValidator(provider.NewMockProvider())
	result := validator.Execute(context.Background(), Input{Source: "x"}, Context{})

	require.False(t, result.Success)
	assert.Equal(t, KindFormat, result.Err.Kind)
}

func TestValidator_Success(t *testing.T) {
	validator := NewValidator(provider.NewMockProvider(
		`{"valid": true, "issues": [], "confidence": 0.95}`,
	))

	result := validator.Execute(context.Background(), Input{
		Source: "x",
		Prior: map[Name]map[string]any{
			Transform: {"code": "func main() {}"},
		},
	}, Context{})

	require.True(t, result.Success)
	assert.Equal(t, true, result.Data["valid"])
	assert.Equal(t, 0.95, result.Confidence)
}

func TestExplainer_Success(t *testing.T) {
	explainer := NewExplainer(provider.NewMockProvider(
		`{"explanation": "ported the batch loop", "confidence": 0.75}`,
	))

	result := explainer.Execute(context.Background(), Input{
		Prior: map[Name]map[string]any{
			Analyze:   {"summary": "payroll batch"},
			Transform: {"code": "func main() {}"},
			Validate:  {"valid": true},
		},
	}, Context{})

	require.True(t, result.Success)
	assert.Equal(t, "ported the batch loop", result.Data["explanation"])
}

func TestStage_PlainTextReplyDegrades(t *testing.T) {
	analyzer := NewAnalyzer(provider.NewMockProvider("this source appears to be a payroll system"))
	result := analyzer.Execute(context.Background(), Input{Source: "x"}, Context{})

	require.True(t, result.Success)
	assert.Equal(t, "this source appears to be a payroll system", result.Data["raw"])
	assert.Less(t, result.Confidence, fallbackConfidence)
}
