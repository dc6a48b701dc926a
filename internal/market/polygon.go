package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const polygonBaseURL = "https://api.polygon.io"

// Polygon uses the REST client for aggregates and ticker details, and plain
// JSON calls for the reference endpoints.
type Polygon struct {
	key     string
	baseURL string
	client  *http.Client
	rest    *polygonrest.Client
}

func NewPolygon(key string, client *http.Client) *Polygon {
	p := &Polygon{key: key, baseURL: polygonBaseURL, client: client}
	if key != "" {
		p.rest = polygonrest.NewWithClient(key, client)
	}
	return p
}

func (p *Polygon) Name() string     { return "polygon" }
func (p *Polygon) Configured() bool { return p != nil && p.key != "" }

func (p *Polygon) CompanyProfile(ctx context.Context, symbol string) (CompanyProfile, error) {
	res, err := p.rest.GetTickerDetails(ctx, &rmodels.GetTickerDetailsParams{Ticker: symbol})
	if err != nil {
		return CompanyProfile{}, fmt.Errorf("polygon ticker details: %w", err)
	}

	t := res.Results
	return CompanyProfile{
		Symbol:      lo.CoalesceOrEmpty(t.Ticker, symbol),
		Name:        t.Name,
		Exchange:    t.PrimaryExchange,
		Industry:    t.SICDescription,
		Currency:    t.CurrencyName,
		Website:     t.HomepageURL,
		Logo:        t.Branding.LogoURL,
		Description: t.Description,
		MarketCap:   decimal.NewFromFloat(t.MarketCap),
	}, nil
}

// DailyCloses returns up to limit daily closes ending today, oldest first.
func (p *Polygon) DailyCloses(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	to := time.Now().UTC()
	// calendar days comfortably covering limit trading days
	from := to.AddDate(0, 0, -limit*7/5-10)

	params := &rmodels.ListAggsParams{
		Ticker:     symbol,
		Timespan:   rmodels.Day,
		Multiplier: 1,
		From:       rmodels.Millis(from),
		To:         rmodels.Millis(to),
	}
	asc := rmodels.Asc
	adj := true
	lim := 5000
	params.Order = &asc
	params.Adjusted = &adj
	params.Limit = &lim

	iter := p.rest.ListAggs(ctx, params)
	var bars []Bar
	for iter.Next() {
		a := iter.Item()
		bars = append(bars, Bar{
			Date:  time.Time(a.Timestamp).UTC().Format(time.DateOnly),
			Close: a.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon aggregates: %w", err)
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func (p *Polygon) Indicator(ctx context.Context, symbol string, kind Indicator, period int) (IndicatorSeries, error) {
	bars, err := p.DailyCloses(ctx, symbol, period*4+1)
	if err != nil {
		return IndicatorSeries{}, err
	}
	return Compute(symbol, kind, period, bars)
}

type polygonNews struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ArticleURL   string   `json:"article_url"`
	ImageURL     string   `json:"image_url"`
	PublishedUTC string   `json:"published_utc"`
	Tickers      []string `json:"tickers"`
	Publisher    struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

func (p *Polygon) News(ctx context.Context, symbol string, from, to time.Time) ([]NewsItem, error) {
	var resp struct {
		Results []polygonNews `json:"results"`
	}
	q := url.Values{
		"ticker":            {symbol},
		"published_utc.gte": {from.Format(time.DateOnly)},
		"published_utc.lt":  {to.AddDate(0, 0, 1).Format(time.DateOnly)},
		"limit":             {"50"},
		"sort":              {"published_utc"},
		"order":             {"desc"},
		"apiKey":            {p.key},
	}
	if err := getJSON(ctx, p.client, p.baseURL, "/v2/reference/news", q, &resp); err != nil {
		return nil, err
	}

	return lo.FilterMap(resp.Results, func(n polygonNews, _ int) (NewsItem, bool) {
		if n.Title == "" || n.ArticleURL == "" {
			return NewsItem{}, false
		}
		published, _ := time.Parse(time.RFC3339, n.PublishedUTC)
		return NewsItem{
			Title:     n.Title,
			Summary:   n.Description,
			URL:       n.ArticleURL,
			Source:    n.Publisher.Name,
			Image:     n.ImageURL,
			Symbols:   n.Tickers,
			Published: published.UTC(),
		}, true
	}), nil
}

func (p *Polygon) Search(ctx context.Context, q string) ([]SearchResult, error) {
	var resp struct {
		Results []struct {
			Ticker       string `json:"ticker"`
			Name         string `json:"name"`
			Type         string `json:"type"`
			Locale       string `json:"locale"`
			CurrencyName string `json:"currency_name"`
		} `json:"results"`
	}
	params := url.Values{
		"search": {q},
		"active": {"true"},
		"limit":  {"20"},
		"apiKey": {p.key},
	}
	if err := getJSON(ctx, p.client, p.baseURL, "/v3/reference/tickers", params, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, SearchResult{
			Symbol:   r.Ticker,
			Name:     r.Name,
			Type:     r.Type,
			Region:   r.Locale,
			Currency: r.CurrencyName,
		})
	}
	return out, nil
}
