package market

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BalanceSheet struct {
	Symbol             string          `json:"symbol"`
	FiscalDate         string          `json:"fiscalDate"`
	Period             string          `json:"period"`
	Currency           string          `json:"currency"`
	TotalAssets        decimal.Decimal `json:"totalAssets"`
	TotalLiabilities   decimal.Decimal `json:"totalLiabilities"`
	TotalEquity        decimal.Decimal `json:"totalEquity"`
	CashAndEquivalents decimal.Decimal `json:"cashAndEquivalents"`
	TotalDebt          decimal.Decimal `json:"totalDebt"`
}

type CashFlow struct {
	Symbol             string          `json:"symbol"`
	FiscalDate         string          `json:"fiscalDate"`
	Period             string          `json:"period"`
	Currency           string          `json:"currency"`
	OperatingCashFlow  decimal.Decimal `json:"operatingCashFlow"`
	CapitalExpenditure decimal.Decimal `json:"capitalExpenditure"`
	FreeCashFlow       decimal.Decimal `json:"freeCashFlow"`
	DividendsPaid      decimal.Decimal `json:"dividendsPaid"`
}

type CompanyProfile struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Exchange    string          `json:"exchange,omitempty"`
	Industry    string          `json:"industry,omitempty"`
	Sector      string          `json:"sector,omitempty"`
	Country     string          `json:"country,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	Website     string          `json:"website,omitempty"`
	Logo        string          `json:"logo,omitempty"`
	Description string          `json:"description,omitempty"`
	MarketCap   decimal.Decimal `json:"marketCap"`
}

type EarningsEvent struct {
	Symbol          string              `json:"symbol"`
	Date            string              `json:"date"`
	Hour            string              `json:"hour,omitempty"`
	EPSEstimate     decimal.NullDecimal `json:"epsEstimate"`
	EPSActual       decimal.NullDecimal `json:"epsActual"`
	RevenueEstimate decimal.NullDecimal `json:"revenueEstimate"`
	RevenueActual   decimal.NullDecimal `json:"revenueActual"`
}

type NewsItem struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	Image     string    `json:"image,omitempty"`
	Symbols   []string  `json:"symbols,omitempty"`
	Published time.Time `json:"published"`
}

type ScreenerRow struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Exchange  string          `json:"exchange,omitempty"`
	Sector    string          `json:"sector,omitempty"`
	Industry  string          `json:"industry,omitempty"`
	Price     decimal.Decimal `json:"price"`
	MarketCap decimal.Decimal `json:"marketCap"`
	Volume    int64           `json:"volume"`
	Beta      float64         `json:"beta"`
}

// ScreenerFilter bounds are ignored when zero.
type ScreenerFilter struct {
	Sector       string
	Exchange     string
	MarketCapMin decimal.Decimal
	MarketCapMax decimal.Decimal
	PriceMin     decimal.Decimal
	PriceMax     decimal.Decimal
	Limit        int
}

func (f ScreenerFilter) Match(r ScreenerRow) bool {
	if f.Sector != "" && !strings.EqualFold(f.Sector, r.Sector) {
		return false
	}
	if f.Exchange != "" && !strings.EqualFold(f.Exchange, r.Exchange) {
		return false
	}
	if !f.MarketCapMin.IsZero() && r.MarketCap.LessThan(f.MarketCapMin) {
		return false
	}
	if !f.MarketCapMax.IsZero() && r.MarketCap.GreaterThan(f.MarketCapMax) {
		return false
	}
	if !f.PriceMin.IsZero() && r.Price.LessThan(f.PriceMin) {
		return false
	}
	if !f.PriceMax.IsZero() && r.Price.GreaterThan(f.PriceMax) {
		return false
	}
	return true
}

type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Region   string `json:"region,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type Indicator string

const (
	IndicatorSMA Indicator = "sma"
	IndicatorEMA Indicator = "ema"
	IndicatorRSI Indicator = "rsi"
)

type IndicatorPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// IndicatorSeries points are ordered oldest first.
type IndicatorSeries struct {
	Symbol    string           `json:"symbol"`
	Indicator Indicator        `json:"indicator"`
	Period    int              `json:"period"`
	Points    []IndicatorPoint `json:"points"`
}
