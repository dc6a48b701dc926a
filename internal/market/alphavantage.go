package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

type AlphaVantage struct {
	key     string
	baseURL string
	client  *http.Client
}

func NewAlphaVantage(key string, client *http.Client) *AlphaVantage {
	return &AlphaVantage{key: key, baseURL: alphaVantageBaseURL, client: client}
}

func (a *AlphaVantage) Name() string     { return "alphavantage" }
func (a *AlphaVantage) Configured() bool { return a != nil && a.key != "" }

// query calls /query and rejects the throttling and error notices Alpha
// Vantage returns with a 200 status.
func (a *AlphaVantage) query(ctx context.Context, params url.Values, v any) error {
	params.Set("apikey", a.key)

	var raw json.RawMessage
	if err := getJSON(ctx, a.client, a.baseURL, "/query", params, &raw); err != nil {
		return err
	}

	var notice struct {
		Note        string `json:"Note"`
		Information string `json:"Information"`
		Error       string `json:"Error Message"`
	}
	if err := json.Unmarshal(raw, &notice); err == nil {
		if msg := lo.Ternary(notice.Error != "", notice.Error, lo.Ternary(notice.Note != "", notice.Note, notice.Information)); msg != "" {
			return fmt.Errorf("%w: %s", ErrEmptyPayload, msg)
		}
	}

	return json.Unmarshal(raw, v)
}

// avDecimal parses Alpha Vantage's string numbers; "None" and blanks are zero.
func avDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

type avBalanceReport struct {
	FiscalDateEnding  string `json:"fiscalDateEnding"`
	ReportedCurrency  string `json:"reportedCurrency"`
	TotalAssets       string `json:"totalAssets"`
	TotalLiabilities  string `json:"totalLiabilities"`
	TotalEquity       string `json:"totalShareholderEquity"`
	Cash              string `json:"cashAndCashEquivalentsAtCarryingValue"`
	ShortLongTermDebt string `json:"shortLongTermDebtTotal"`
}

func (a *AlphaVantage) BalanceSheet(ctx context.Context, symbol string) ([]BalanceSheet, error) {
	var resp struct {
		Symbol        string            `json:"symbol"`
		AnnualReports []avBalanceReport `json:"annualReports"`
	}
	if err := a.query(ctx, url.Values{"function": {"BALANCE_SHEET"}, "symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp.AnnualReports, func(r avBalanceReport, _ int) BalanceSheet {
		return BalanceSheet{
			Symbol:             symbol,
			FiscalDate:         r.FiscalDateEnding,
			Period:             "annual",
			Currency:           r.ReportedCurrency,
			TotalAssets:        avDecimal(r.TotalAssets),
			TotalLiabilities:   avDecimal(r.TotalLiabilities),
			TotalEquity:        avDecimal(r.TotalEquity),
			CashAndEquivalents: avDecimal(r.Cash),
			TotalDebt:          avDecimal(r.ShortLongTermDebt),
		}
	}), nil
}

type avCashFlowReport struct {
	FiscalDateEnding    string `json:"fiscalDateEnding"`
	ReportedCurrency    string `json:"reportedCurrency"`
	OperatingCashflow   string `json:"operatingCashflow"`
	CapitalExpenditures string `json:"capitalExpenditures"`
	DividendPayout      string `json:"dividendPayout"`
}

func (a *AlphaVantage) CashFlow(ctx context.Context, symbol string) ([]CashFlow, error) {
	var resp struct {
		AnnualReports []avCashFlowReport `json:"annualReports"`
	}
	if err := a.query(ctx, url.Values{"function": {"CASH_FLOW"}, "symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp.AnnualReports, func(r avCashFlowReport, _ int) CashFlow {
		op := avDecimal(r.OperatingCashflow)
		capex := avDecimal(r.CapitalExpenditures).Abs()
		return CashFlow{
			Symbol:             symbol,
			FiscalDate:         r.FiscalDateEnding,
			Period:             "annual",
			Currency:           r.ReportedCurrency,
			OperatingCashFlow:  op,
			CapitalExpenditure: capex.Neg(),
			FreeCashFlow:       op.Sub(capex),
			DividendsPaid:      avDecimal(r.DividendPayout).Abs().Neg(),
		}
	}), nil
}

func (a *AlphaVantage) Search(ctx context.Context, q string) ([]SearchResult, error) {
	var resp struct {
		BestMatches []map[string]string `json:"bestMatches"`
	}
	if err := a.query(ctx, url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {q}}, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp.BestMatches, func(m map[string]string, _ int) SearchResult {
		return SearchResult{
			Symbol:   m["1. symbol"],
			Name:     m["2. name"],
			Type:     m["3. type"],
			Region:   m["4. region"],
			Currency: m["8. currency"],
		}
	}), nil
}

func (a *AlphaVantage) Indicator(ctx context.Context, symbol string, kind Indicator, period int) (IndicatorSeries, error) {
	fn := strings.ToUpper(string(kind))
	params := url.Values{
		"function":    {fn},
		"symbol":      {symbol},
		"interval":    {"daily"},
		"time_period": {strconv.Itoa(period)},
		"series_type": {"close"},
	}

	var resp map[string]json.RawMessage
	if err := a.query(ctx, params, &resp); err != nil {
		return IndicatorSeries{}, err
	}

	series := IndicatorSeries{Symbol: symbol, Indicator: kind, Period: period}

	raw, ok := resp["Technical Analysis: "+fn]
	if !ok {
		return series, nil
	}
	var byDate map[string]map[string]string
	if err := json.Unmarshal(raw, &byDate); err != nil {
		return series, fmt.Errorf("failed to decode %s series: %w", fn, err)
	}

	for date, values := range byDate {
		series.Points = append(series.Points, IndicatorPoint{Date: date, Value: avDecimal(values[fn])})
	}
	sort.Slice(series.Points, func(i, j int) bool { return series.Points[i].Date < series.Points[j].Date })
	return series, nil
}
