package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
)

type fakeProvider struct {
	dim       int
	err       error
	calls     int
	callTimes []time.Time
}

func (f *fakeProvider) vector() []float32 {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = float32(i)
	}
	return v
}

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(), nil
}

func (f *fakeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.callTimes = append(f.callTimes, time.Now())
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector()
	}
	return out, nil
}

func TestEmbedQueryEmptyInputReturnsNil(t *testing.T) {
	p := &fakeProvider{dim: 8}
	c := NewClient(p, 8, 0)

	v, err := c.EmbedQuery(context.Background(), "   \n ")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Zero(t, p.calls, "provider must not be called for empty input")
}

func TestEmbedQueryDimension(t *testing.T) {
	p := &fakeProvider{dim: 8}
	c := NewClient(p, 8, 0)

	v, err := c.EmbedQuery(context.Background(), "what is this about?")
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestEmbedDocumentFlattensBatchResponse(t *testing.T) {
	p := &fakeProvider{dim: 8}
	c := NewClient(p, 8, 0)

	v, err := c.EmbedDocument(context.Background(), "chunk text")
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestDimensionMismatchRejected(t *testing.T) {
	p := &fakeProvider{dim: 4}
	c := NewClient(p, 8, 0)

	_, err := c.EmbedDocument(context.Background(), "chunk text")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.EmbeddingFailure))

	_, err = c.EmbedQuery(context.Background(), "question")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.EmbeddingFailure))
}

func TestProviderErrorTaggedAsEmbeddingFailure(t *testing.T) {
	p := &fakeProvider{dim: 8, err: errors.New("upstream down")}
	c := NewClient(p, 8, 0)

	_, err := c.EmbedDocument(context.Background(), "chunk text")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.EmbeddingFailure))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestEmbedDocumentThrottleSpacing(t *testing.T) {
	p := &fakeProvider{dim: 4}
	c := NewClient(p, 4, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, err := c.EmbedDocument(context.Background(), "chunk")
		require.NoError(t, err)
	}
	require.Len(t, p.callTimes, 3)
	for i := 1; i < len(p.callTimes); i++ {
		gap := p.callTimes[i].Sub(p.callTimes[i-1])
		assert.GreaterOrEqual(t, gap, 40*time.Millisecond, "calls must be spaced by the configured delay")
	}
}

func TestThrottleWaitHonorsCancellation(t *testing.T) {
	p := &fakeProvider{dim: 4}
	c := NewClient(p, 4, time.Hour)

	// First call consumes the initial token.
	_, err := c.EmbedDocument(context.Background(), "chunk")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.EmbedDocument(ctx, "chunk")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.TimeoutError))
}
