package market

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const SourceMock = "mock"

// Provider is one step of a Chain.
type Provider[T any] struct {
	Name       string
	Configured bool
	Fetch      func(ctx context.Context) (T, error)
}

type Result[T any] struct {
	Data   T      `json:"data"`
	Source string `json:"source"`
}

// Chain tries providers in order. Unconfigured providers are skipped; an
// error or an Empty result moves on to the next one. Mock is used only once
// every provider has been passed over.
type Chain[T any] struct {
	Name      string
	Providers []Provider[T]
	Empty     func(T) bool
	Mock      func() T
	Timeout   time.Duration
	Logger    *zap.Logger
}

func (c Chain[T]) Run(ctx context.Context) (Result[T], error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	for _, p := range c.Providers {
		if !p.Configured {
			continue
		}

		data, err := c.try(ctx, p, timeout)
		if err != nil {
			logger.Warn("provider failed, trying next",
				zap.String("route", c.Name),
				zap.String("provider", p.Name),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return Result[T]{}, ctx.Err()
			}
			continue
		}
		return Result[T]{Data: data, Source: p.Name}, nil
	}

	if c.Mock == nil {
		return Result[T]{}, ErrNoData
	}
	logger.Info("serving mock data", zap.String("route", c.Name))
	return Result[T]{Data: c.Mock(), Source: SourceMock}, nil
}

func (c Chain[T]) try(ctx context.Context, p Provider[T], timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := p.Fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if c.Empty != nil && c.Empty(data) {
		var zero T
		return zero, ErrEmptyPayload
	}
	return data, nil
}

func emptySlice[E any](s []E) bool {
	return len(s) == 0
}
