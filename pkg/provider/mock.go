package provider

import (
	"context"
	"sync"
)

/*
MockProvider returns canned responses for tests and the offline demo path.
Responses are consumed in order; the last one repeats once the script runs
out. A non-nil Err wins over any scripted response.
*/
type MockProvider struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	calls     int
}

func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{Responses: responses}
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Calls reports how many times Generate ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

/*
MockEmbedder derives a deterministic vector from the text bytes, good enough
for similarity assertions without a network round trip.
*/
type MockEmbedder struct {
	Dim int
}

func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 4
	}
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, m.Dim)
	if len(text) == 0 {
		vector[0] = 1
		return vector, nil
	}
	for i := 0; i < m.Dim; i++ {
		vector[i] = float32(text[i%len(text)]) / 256.0
	}
	return vector, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}
