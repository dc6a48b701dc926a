package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchOK(v []string, calls *[]string, name string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		*calls = append(*calls, name)
		return v, nil
	}
}

func fetchErr(calls *[]string, name string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		*calls = append(*calls, name)
		return nil, ErrUpstreamStatus
	}
}

func TestChainFirstConfiguredProviderWins(t *testing.T) {
	var calls []string
	c := Chain[[]string]{
		Name:  "test",
		Empty: emptySlice[string],
		Mock:  func() []string { return []string{"mock"} },
		Providers: []Provider[[]string]{
			{Name: "a", Configured: false, Fetch: fetchOK([]string{"a"}, &calls, "a")},
			{Name: "b", Configured: true, Fetch: fetchOK([]string{"b"}, &calls, "b")},
			{Name: "c", Configured: true, Fetch: fetchOK([]string{"c"}, &calls, "c")},
		},
	}

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", res.Source)
	assert.Equal(t, []string{"b"}, res.Data)
	assert.Equal(t, []string{"b"}, calls)
}

func TestChainFallsThroughErrorsAndEmptyPayloads(t *testing.T) {
	var calls []string
	c := Chain[[]string]{
		Name:  "test",
		Empty: emptySlice[string],
		Mock:  func() []string { return []string{"mock"} },
		Providers: []Provider[[]string]{
			{Name: "a", Configured: true, Fetch: fetchErr(&calls, "a")},
			{Name: "b", Configured: true, Fetch: fetchOK(nil, &calls, "b")},
			{Name: "c", Configured: true, Fetch: fetchOK([]string{"c"}, &calls, "c")},
		},
	}

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c", res.Source)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestChainMockWhenNothingAnswers(t *testing.T) {
	var calls []string
	c := Chain[[]string]{
		Name:  "test",
		Empty: emptySlice[string],
		Mock:  func() []string { return []string{"mock"} },
		Providers: []Provider[[]string]{
			{Name: "a", Configured: true, Fetch: fetchErr(&calls, "a")},
			{Name: "b", Configured: false, Fetch: fetchOK([]string{"b"}, &calls, "b")},
		},
	}

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceMock, res.Source)
	assert.Equal(t, []string{"mock"}, res.Data)
	assert.Equal(t, []string{"a"}, calls)
}

func TestChainNoMockReturnsErrNoData(t *testing.T) {
	c := Chain[[]string]{Name: "test"}
	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestChainAppliesPerProviderTimeout(t *testing.T) {
	c := Chain[[]string]{
		Name:    "test",
		Timeout: 20 * time.Millisecond,
		Mock:    func() []string { return []string{"mock"} },
		Providers: []Provider[[]string]{
			{Name: "slow", Configured: true, Fetch: func(ctx context.Context) ([]string, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}},
		},
	}

	start := time.Now()
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceMock, res.Source)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChainStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := Chain[[]string]{
		Name: "test",
		Mock: func() []string { return []string{"mock"} },
		Providers: []Provider[[]string]{
			{Name: "a", Configured: true, Fetch: func(context.Context) ([]string, error) {
				cancel()
				return nil, errors.New("boom")
			}},
		},
	}

	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
