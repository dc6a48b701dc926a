package market

import (
	"context"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/samber/lo"
)

type newsGetter interface {
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// Alpaca serves news from the Alpaca market data API.
type Alpaca struct {
	configured bool
	client     newsGetter
}

// NewAlpaca builds the provider. baseURL may be empty for the default
// endpoint.
func NewAlpaca(key, secret, baseURL string) *Alpaca {
	if key == "" || secret == "" {
		return &Alpaca{}
	}
	opts := marketdata.ClientOpts{APIKey: key, APISecret: secret}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	return &Alpaca{configured: true, client: marketdata.NewClient(opts)}
}

func (a *Alpaca) Name() string     { return "alpaca" }
func (a *Alpaca) Configured() bool { return a != nil && a.configured }

type newsResult struct {
	news []marketdata.News
	err  error
}

// News bounds the blocking client call with ctx.
func (a *Alpaca) News(ctx context.Context, symbol string, from, to time.Time) ([]NewsItem, error) {
	done := make(chan newsResult, 1)
	go func() {
		news, err := a.client.GetNews(marketdata.GetNewsRequest{
			Symbols:            []string{symbol},
			Start:              from,
			End:                to,
			TotalLimit:         50,
			ExcludeContentless: false,
			Sort:               marketdata.SortDesc,
		})
		done <- newsResult{news: news, err: err}
	}()

	var res newsResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	return lo.FilterMap(res.news, func(n marketdata.News, _ int) (NewsItem, bool) {
		if n.Headline == "" || n.URL == "" {
			return NewsItem{}, false
		}
		return NewsItem{
			Title:     n.Headline,
			Summary:   n.Summary,
			URL:       n.URL,
			Source:    n.Source,
			Symbols:   n.Symbols,
			Published: n.CreatedAt.UTC(),
		}, true
	}), nil
}
