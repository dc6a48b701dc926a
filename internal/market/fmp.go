package market

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const fmpBaseURL = "https://financialmodelingprep.com/stable"

// FMP is Financial Modeling Prep.
type FMP struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewFMP(key string, client *http.Client) *FMP {
	return &FMP{key: key, baseURL: fmpBaseURL, client: client}
}

func (f *FMP) Name() string     { return "fmp" }
func (f *FMP) Configured() bool { return f != nil && f.key != "" }

func (f *FMP) get(ctx context.Context, path string, q url.Values, v any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("apikey", f.key)
	return getJSON(ctx, f.client, f.baseURL, path, q, v)
}

type fmpBalanceSheet struct {
	Date                    string          `json:"date"`
	Symbol                  string          `json:"symbol"`
	Period                  string          `json:"period"`
	ReportedCurrency        string          `json:"reportedCurrency"`
	TotalAssets             decimal.Decimal `json:"totalAssets"`
	TotalLiabilities        decimal.Decimal `json:"totalLiabilities"`
	TotalStockholdersEquity decimal.Decimal `json:"totalStockholdersEquity"`
	CashAndCashEquivalents  decimal.Decimal `json:"cashAndCashEquivalents"`
	TotalDebt               decimal.Decimal `json:"totalDebt"`
}

func (f *FMP) BalanceSheet(ctx context.Context, symbol string) ([]BalanceSheet, error) {
	var rows []fmpBalanceSheet
	if err := f.get(ctx, "/balance-sheet-statement", url.Values{"symbol": {symbol}, "limit": {"5"}}, &rows); err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r fmpBalanceSheet, _ int) BalanceSheet {
		return BalanceSheet{
			Symbol:             lo.CoalesceOrEmpty(r.Symbol, symbol),
			FiscalDate:         r.Date,
			Period:             periodName(r.Period),
			Currency:           r.ReportedCurrency,
			TotalAssets:        r.TotalAssets,
			TotalLiabilities:   r.TotalLiabilities,
			TotalEquity:        r.TotalStockholdersEquity,
			CashAndEquivalents: r.CashAndCashEquivalents,
			TotalDebt:          r.TotalDebt,
		}
	}), nil
}

type fmpCashFlow struct {
	Date               string          `json:"date"`
	Symbol             string          `json:"symbol"`
	Period             string          `json:"period"`
	ReportedCurrency   string          `json:"reportedCurrency"`
	OperatingCashFlow  decimal.Decimal `json:"operatingCashFlow"`
	CapitalExpenditure decimal.Decimal `json:"capitalExpenditure"`
	FreeCashFlow       decimal.Decimal `json:"freeCashFlow"`
	DividendsPaid      decimal.Decimal `json:"dividendsPaid"`
}

func (f *FMP) CashFlow(ctx context.Context, symbol string) ([]CashFlow, error) {
	var rows []fmpCashFlow
	if err := f.get(ctx, "/cash-flow-statement", url.Values{"symbol": {symbol}, "limit": {"5"}}, &rows); err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r fmpCashFlow, _ int) CashFlow {
		return CashFlow{
			Symbol:             lo.CoalesceOrEmpty(r.Symbol, symbol),
			FiscalDate:         r.Date,
			Period:             periodName(r.Period),
			Currency:           r.ReportedCurrency,
			OperatingCashFlow:  r.OperatingCashFlow,
			CapitalExpenditure: r.CapitalExpenditure,
			FreeCashFlow:       r.FreeCashFlow,
			DividendsPaid:      r.DividendsPaid,
		}
	}), nil
}

type fmpProfile struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	Exchange    string          `json:"exchange"`
	Industry    string          `json:"industry"`
	Sector      string          `json:"sector"`
	Country     string          `json:"country"`
	Currency    string          `json:"currency"`
	Website     string          `json:"website"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	MarketCap   decimal.Decimal `json:"marketCap"`
}

func (f *FMP) CompanyProfile(ctx context.Context, symbol string) (CompanyProfile, error) {
	var rows []fmpProfile
	if err := f.get(ctx, "/profile", url.Values{"symbol": {symbol}}, &rows); err != nil {
		return CompanyProfile{}, err
	}
	if len(rows) == 0 {
		return CompanyProfile{}, nil
	}

	p := rows[0]
	return CompanyProfile{
		Symbol:      lo.CoalesceOrEmpty(p.Symbol, symbol),
		Name:        p.CompanyName,
		Exchange:    p.Exchange,
		Industry:    p.Industry,
		Sector:      p.Sector,
		Country:     p.Country,
		Currency:    p.Currency,
		Website:     p.Website,
		Logo:        p.Image,
		Description: p.Description,
		MarketCap:   p.MarketCap,
	}, nil
}

type fmpEarnings struct {
	Symbol           string              `json:"symbol"`
	Date             string              `json:"date"`
	EPSActual        decimal.NullDecimal `json:"epsActual"`
	EPSEstimated     decimal.NullDecimal `json:"epsEstimated"`
	RevenueActual    decimal.NullDecimal `json:"revenueActual"`
	RevenueEstimated decimal.NullDecimal `json:"revenueEstimated"`
}

func (f *FMP) EarningsCalendar(ctx context.Context, from, to string) ([]EarningsEvent, error) {
	var rows []fmpEarnings
	if err := f.get(ctx, "/earnings-calendar", url.Values{"from": {from}, "to": {to}}, &rows); err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r fmpEarnings, _ int) EarningsEvent {
		return EarningsEvent{
			Symbol:          r.Symbol,
			Date:            r.Date,
			EPSEstimate:     r.EPSEstimated,
			EPSActual:       r.EPSActual,
			RevenueEstimate: r.RevenueEstimated,
			RevenueActual:   r.RevenueActual,
		}
	}), nil
}

type fmpNews struct {
	Symbol        string `json:"symbol"`
	PublishedDate string `json:"publishedDate"`
	Publisher     string `json:"publisher"`
	Site          string `json:"site"`
	Title         string `json:"title"`
	Image         string `json:"image"`
	Text          string `json:"text"`
	URL           string `json:"url"`
}

func (f *FMP) News(ctx context.Context, symbol string) ([]NewsItem, error) {
	var rows []fmpNews
	if err := f.get(ctx, "/news/stock", url.Values{"symbols": {symbol}, "limit": {"50"}}, &rows); err != nil {
		return nil, err
	}

	items := lo.FilterMap(rows, func(r fmpNews, _ int) (NewsItem, bool) {
		if r.Title == "" || r.URL == "" {
			return NewsItem{}, false
		}
		published, _ := time.Parse("2006-01-02 15:04:05", r.PublishedDate)
		return NewsItem{
			Title:     r.Title,
			Summary:   r.Text,
			URL:       r.URL,
			Source:    lo.CoalesceOrEmpty(r.Publisher, r.Site),
			Image:     r.Image,
			Symbols:   lo.Compact([]string{r.Symbol}),
			Published: published.UTC(),
		}, true
	})
	return items, nil
}

type fmpScreenerRow struct {
	Symbol            string          `json:"symbol"`
	CompanyName       string          `json:"companyName"`
	MarketCap         decimal.Decimal `json:"marketCap"`
	Sector            string          `json:"sector"`
	Industry          string          `json:"industry"`
	Beta              float64         `json:"beta"`
	Price             decimal.Decimal `json:"price"`
	Volume            int64           `json:"volume"`
	ExchangeShortName string          `json:"exchangeShortName"`
}

func (f *FMP) Screener(ctx context.Context, filter ScreenerFilter) ([]ScreenerRow, error) {
	q := url.Values{"limit": {strconv.Itoa(filter.Limit)}}
	if filter.Sector != "" {
		q.Set("sector", filter.Sector)
	}
	if filter.Exchange != "" {
		q.Set("exchange", filter.Exchange)
	}
	if !filter.MarketCapMin.IsZero() {
		q.Set("marketCapMoreThan", filter.MarketCapMin.String())
	}
	if !filter.MarketCapMax.IsZero() {
		q.Set("marketCapLowerThan", filter.MarketCapMax.String())
	}
	if !filter.PriceMin.IsZero() {
		q.Set("priceMoreThan", filter.PriceMin.String())
	}
	if !filter.PriceMax.IsZero() {
		q.Set("priceLowerThan", filter.PriceMax.String())
	}

	var rows []fmpScreenerRow
	if err := f.get(ctx, "/company-screener", q, &rows); err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r fmpScreenerRow, _ int) ScreenerRow {
		return ScreenerRow{
			Symbol:    r.Symbol,
			Name:      r.CompanyName,
			Exchange:  r.ExchangeShortName,
			Sector:    r.Sector,
			Industry:  r.Industry,
			Price:     r.Price,
			MarketCap: r.MarketCap,
			Volume:    r.Volume,
			Beta:      r.Beta,
		}
	}), nil
}

func periodName(p string) string {
	if p == "" || p == "FY" {
		return "annual"
	}
	return p
}
