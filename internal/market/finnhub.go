package market

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

var million = decimal.NewFromInt(1_000_000)

type Finnhub struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewFinnhub(key string, client *http.Client) *Finnhub {
	return &Finnhub{key: key, baseURL: finnhubBaseURL, client: client}
}

func (f *Finnhub) Name() string     { return "finnhub" }
func (f *Finnhub) Configured() bool { return f != nil && f.key != "" }

func (f *Finnhub) get(ctx context.Context, path string, q url.Values, v any) error {
	q.Set("token", f.key)
	return getJSON(ctx, f.client, f.baseURL, path, q, v)
}

func (f *Finnhub) CompanyProfile(ctx context.Context, symbol string) (CompanyProfile, error) {
	var p struct {
		Name                 string          `json:"name"`
		Ticker               string          `json:"ticker"`
		Exchange             string          `json:"exchange"`
		FinnhubIndustry      string          `json:"finnhubIndustry"`
		Country              string          `json:"country"`
		Currency             string          `json:"currency"`
		WebURL               string          `json:"weburl"`
		Logo                 string          `json:"logo"`
		MarketCapitalization decimal.Decimal `json:"marketCapitalization"`
	}
	if err := f.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &p); err != nil {
		return CompanyProfile{}, err
	}

	return CompanyProfile{
		Symbol:   lo.CoalesceOrEmpty(p.Ticker, symbol),
		Name:     p.Name,
		Exchange: p.Exchange,
		Industry: p.FinnhubIndustry,
		Country:  p.Country,
		Currency: p.Currency,
		Website:  p.WebURL,
		Logo:     p.Logo,
		// reported in millions
		MarketCap: p.MarketCapitalization.Mul(million),
	}, nil
}

type finnhubEarnings struct {
	Symbol          string              `json:"symbol"`
	Date            string              `json:"date"`
	Hour            string              `json:"hour"`
	EPSEstimate     decimal.NullDecimal `json:"epsEstimate"`
	EPSActual       decimal.NullDecimal `json:"epsActual"`
	RevenueEstimate decimal.NullDecimal `json:"revenueEstimate"`
	RevenueActual   decimal.NullDecimal `json:"revenueActual"`
}

func (f *Finnhub) EarningsCalendar(ctx context.Context, from, to string) ([]EarningsEvent, error) {
	var resp struct {
		EarningsCalendar []finnhubEarnings `json:"earningsCalendar"`
	}
	if err := f.get(ctx, "/calendar/earnings", url.Values{"from": {from}, "to": {to}}, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp.EarningsCalendar, func(e finnhubEarnings, _ int) EarningsEvent {
		return EarningsEvent(e)
	}), nil
}

type finnhubNews struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Datetime int64  `json:"datetime"`
}

func (f *Finnhub) News(ctx context.Context, symbol string, from, to time.Time) ([]NewsItem, error) {
	var rows []finnhubNews
	q := url.Values{
		"symbol": {symbol},
		"from":   {from.Format(time.DateOnly)},
		"to":     {to.Format(time.DateOnly)},
	}
	if err := f.get(ctx, "/company-news", q, &rows); err != nil {
		return nil, err
	}

	return lo.FilterMap(rows, func(n finnhubNews, _ int) (NewsItem, bool) {
		if n.Headline == "" || n.URL == "" {
			return NewsItem{}, false
		}
		return NewsItem{
			Title:     n.Headline,
			Summary:   n.Summary,
			URL:       n.URL,
			Source:    n.Source,
			Image:     n.Image,
			Symbols:   lo.Compact(strings.Split(n.Related, ",")),
			Published: time.Unix(n.Datetime, 0).UTC(),
		}, true
	}), nil
}

func (f *Finnhub) Search(ctx context.Context, q string) ([]SearchResult, error) {
	var resp struct {
		Result []struct {
			Description   string `json:"description"`
			DisplaySymbol string `json:"displaySymbol"`
			Symbol        string `json:"symbol"`
			Type          string `json:"type"`
		} `json:"result"`
	}
	if err := f.get(ctx, "/search", url.Values{"q": {q}}, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, SearchResult{
			Symbol: lo.CoalesceOrEmpty(r.DisplaySymbol, r.Symbol),
			Name:   r.Description,
			Type:   r.Type,
		})
	}
	return out, nil
}
