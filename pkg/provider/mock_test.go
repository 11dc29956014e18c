package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_ScriptedResponses(t *testing.T) {
	m := NewMockProvider("first", "second")

	out, err := m.Generate(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, _ = m.Generate(context.Background(), "p", Params{})
	assert.Equal(t, "second", out)

	// The script is exhausted; the last response repeats.
	out, _ = m.Generate(context.Background(), "p", Params{})
	assert.Equal(t, "second", out)
	assert.Equal(t, 3, m.Calls())
}

func TestMockProvider_ErrWins(t *testing.T) {
	m := &MockProvider{Responses: []string{"never"}, Err: errors.New("boom")}
	_, err := m.Generate(context.Background(), "p", Params{})
	assert.Error(t, err)
}

func TestMockProvider_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockProvider("x")
	_, err := m.Generate(ctx, "p", Params{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)

	a, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)

	c, _ := e.Embed(context.Background(), "other")
	assert.NotEqual(t, a, c)
}

func TestMockEmbedder_Batch(t *testing.T) {
	e := NewMockEmbedder(4)

	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 4)
}
