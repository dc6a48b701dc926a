package market

import (
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// mockUniverse backs every route when no provider answers.
var mockUniverse = []ScreenerRow{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", Sector: "Technology", Industry: "Consumer Electronics", Price: decimal.RequireFromString("189.84"), MarketCap: decimal.RequireFromString("2950000000000"), Volume: 52000000, Beta: 1.29},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", Sector: "Technology", Industry: "Software", Price: decimal.RequireFromString("415.50"), MarketCap: decimal.RequireFromString("3090000000000"), Volume: 21000000, Beta: 0.90},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ", Sector: "Communication Services", Industry: "Internet Content", Price: decimal.RequireFromString("141.80"), MarketCap: decimal.RequireFromString("1770000000000"), Volume: 25000000, Beta: 1.05},
	{Symbol: "AMZN", Name: "Amazon.com, Inc.", Exchange: "NASDAQ", Sector: "Consumer Cyclical", Industry: "Internet Retail", Price: decimal.RequireFromString("178.25"), MarketCap: decimal.RequireFromString("1850000000000"), Volume: 38000000, Beta: 1.16},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ", Sector: "Technology", Industry: "Semiconductors", Price: decimal.RequireFromString("875.30"), MarketCap: decimal.RequireFromString("2190000000000"), Volume: 45000000, Beta: 1.68},
	{Symbol: "TSLA", Name: "Tesla, Inc.", Exchange: "NASDAQ", Sector: "Consumer Cyclical", Industry: "Auto Manufacturers", Price: decimal.RequireFromString("175.10"), MarketCap: decimal.RequireFromString("557000000000"), Volume: 98000000, Beta: 2.31},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Exchange: "NYSE", Sector: "Financial Services", Industry: "Banks", Price: decimal.RequireFromString("196.40"), MarketCap: decimal.RequireFromString("565000000000"), Volume: 9000000, Beta: 1.10},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Exchange: "NYSE", Sector: "Healthcare", Industry: "Drug Manufacturers", Price: decimal.RequireFromString("157.20"), MarketCap: decimal.RequireFromString("378000000000"), Volume: 7000000, Beta: 0.52},
	{Symbol: "XOM", Name: "Exxon Mobil Corporation", Exchange: "NYSE", Sector: "Energy", Industry: "Oil & Gas Integrated", Price: decimal.RequireFromString("118.60"), MarketCap: decimal.RequireFromString("470000000000"), Volume: 16000000, Beta: 0.88},
	{Symbol: "KO", Name: "The Coca-Cola Company", Exchange: "NYSE", Sector: "Consumer Defensive", Industry: "Beverages", Price: decimal.RequireFromString("60.15"), MarketCap: decimal.RequireFromString("259000000000"), Volume: 12000000, Beta: 0.59},
}

func symbolSeed(symbol string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToUpper(symbol)))
	return h.Sum32()
}

func mockRow(symbol string) (ScreenerRow, bool) {
	return lo.Find(mockUniverse, func(r ScreenerRow) bool { return strings.EqualFold(r.Symbol, symbol) })
}

// mockScale sizes synthetic statements so different symbols differ.
func mockScale(symbol string) decimal.Decimal {
	if r, ok := mockRow(symbol); ok {
		return r.MarketCap.Div(decimal.NewFromInt(8)).Round(0)
	}
	return decimal.NewFromInt(int64(symbolSeed(symbol)%90+10) * 1_000_000_000)
}

func fiscalYears(n int) []string {
	year := time.Now().UTC().Year() - 1
	return lo.Times(n, func(i int) string {
		return time.Date(year-i, time.December, 31, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
	})
}

func pct(d decimal.Decimal, p int64) decimal.Decimal {
	return d.Mul(decimal.NewFromInt(p)).Div(decimal.NewFromInt(100)).Round(0)
}

func MockBalanceSheet(symbol string) []BalanceSheet {
	scale := mockScale(symbol)
	return lo.Map(fiscalYears(4), func(date string, i int) BalanceSheet {
		assets := pct(scale, 100-int64(i)*6)
		liabilities := pct(assets, 58)
		return BalanceSheet{
			Symbol:             strings.ToUpper(symbol),
			FiscalDate:         date,
			Period:             "annual",
			Currency:           "USD",
			TotalAssets:        assets,
			TotalLiabilities:   liabilities,
			TotalEquity:        assets.Sub(liabilities),
			CashAndEquivalents: pct(assets, 12),
			TotalDebt:          pct(assets, 25),
		}
	})
}

func MockCashFlow(symbol string) []CashFlow {
	scale := mockScale(symbol)
	return lo.Map(fiscalYears(4), func(date string, i int) CashFlow {
		op := pct(scale, 18-int64(i))
		capex := pct(scale, 5)
		return CashFlow{
			Symbol:             strings.ToUpper(symbol),
			FiscalDate:         date,
			Period:             "annual",
			Currency:           "USD",
			OperatingCashFlow:  op,
			CapitalExpenditure: capex.Neg(),
			FreeCashFlow:       op.Sub(capex),
			DividendsPaid:      pct(scale, 3).Neg(),
		}
	})
}

func MockCompanyProfile(symbol string) CompanyProfile {
	sym := strings.ToUpper(symbol)
	r, ok := mockRow(sym)
	if !ok {
		return CompanyProfile{
			Symbol:    sym,
			Name:      sym,
			Currency:  "USD",
			MarketCap: mockScale(sym).Mul(decimal.NewFromInt(8)),
		}
	}
	return CompanyProfile{
		Symbol:    r.Symbol,
		Name:      r.Name,
		Exchange:  r.Exchange,
		Industry:  r.Industry,
		Sector:    r.Sector,
		Country:   "US",
		Currency:  "USD",
		MarketCap: r.MarketCap,
	}
}

func MockEarningsCalendar(from, to time.Time) []EarningsEvent {
	days := int(to.Sub(from).Hours()/24) + 1
	if days < 1 {
		return []EarningsEvent{}
	}

	return lo.Map(mockUniverse, func(r ScreenerRow, i int) EarningsEvent {
		day := from.AddDate(0, 0, int(symbolSeed(r.Symbol))%days)
		eps := decimal.NewFromInt(int64(symbolSeed(r.Symbol)%400) + 50).Div(decimal.NewFromInt(100))
		return EarningsEvent{
			Symbol:          r.Symbol,
			Date:            day.Format(time.DateOnly),
			Hour:            lo.Ternary(i%2 == 0, "bmo", "amc"),
			EPSEstimate:     decimal.NewNullDecimal(eps),
			RevenueEstimate: decimal.NewNullDecimal(pct(r.MarketCap, 6)),
		}
	})
}

func MockNews(symbol string) []NewsItem {
	sym := strings.ToUpper(symbol)
	now := time.Now().UTC().Truncate(time.Hour)
	return []NewsItem{
		{
			Title:     sym + " shares steady ahead of quarterly update",
			Summary:   "Sample headline shown while live news providers are unavailable.",
			URL:       "https://example.com/news/" + strings.ToLower(sym) + "/1",
			Source:    "mock",
			Symbols:   []string{sym},
			Published: now.Add(-2 * time.Hour),
		},
		{
			Title:     "Analysts revisit " + sym + " price targets",
			Summary:   "Sample headline shown while live news providers are unavailable.",
			URL:       "https://example.com/news/" + strings.ToLower(sym) + "/2",
			Source:    "mock",
			Symbols:   []string{sym},
			Published: now.Add(-26 * time.Hour),
		},
	}
}

func MockScreener(f ScreenerFilter) []ScreenerRow {
	rows := lo.Filter(mockUniverse, func(r ScreenerRow, _ int) bool { return f.Match(r) })
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows
}

func MockSearch(q string) []SearchResult {
	q = strings.ToLower(strings.TrimSpace(q))
	matches := lo.Filter(mockUniverse, func(r ScreenerRow, _ int) bool {
		return strings.Contains(strings.ToLower(r.Symbol), q) || strings.Contains(strings.ToLower(r.Name), q)
	})
	return lo.Map(matches, func(r ScreenerRow, _ int) SearchResult {
		return SearchResult{Symbol: r.Symbol, Name: r.Name, Type: "Equity", Region: "United States", Currency: "USD"}
	})
}

// MockBars is a deterministic synthetic daily series ending yesterday.
func MockBars(symbol string, n int) []Bar {
	base := 100.0
	if r, ok := mockRow(symbol); ok {
		base = r.Price.InexactFloat64()
	}
	seed := float64(symbolSeed(symbol)%628) / 100

	end := time.Now().UTC().AddDate(0, 0, -1)
	return lo.Times(n, func(i int) Bar {
		x := float64(i)
		return Bar{
			Date:  end.AddDate(0, 0, i-n+1).Format(time.DateOnly),
			Close: math.Round((base*(1+0.05*math.Sin(x/6+seed)+0.0015*x))*100) / 100,
		}
	})
}

func MockIndicator(symbol string, kind Indicator, period int) IndicatorSeries {
	series, err := Compute(strings.ToUpper(symbol), kind, period, MockBars(symbol, period*4+1))
	if err != nil {
		return IndicatorSeries{Symbol: strings.ToUpper(symbol), Indicator: kind, Period: period, Points: []IndicatorPoint{}}
	}
	return series
}
