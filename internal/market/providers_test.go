package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream fakes every plain-HTTP provider on one server, routed by prefix.
type upstream struct {
	mu     sync.Mutex
	hits   []string
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if fn := r.URL.Query().Get("function"); fn != "" {
		key += "?" + fn
	}
	u.mu.Lock()
	u.hits = append(u.hits, key)
	h, ok := u.routes[key]
	u.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h(w, r)
}

func (u *upstream) Hits() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.hits...)
}

func body(s string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, s)
	}
}

func status(code int) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

// newTestService wires Alpha Vantage, FMP and Finnhub to the fake upstream.
// Polygon and Alpaca stay unconfigured.
func newTestService(t *testing.T, routes map[string]func(http.ResponseWriter, *http.Request)) (*Service, *upstream) {
	t.Helper()
	u := &upstream{routes: routes}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)

	svc := NewService(Config{Keys: Keys{AlphaVantage: "av", FMP: "fmp", Finnhub: "fh"}, Timeout: 2 * time.Second}, nil)
	svc.av.baseURL = srv.URL + "/av"
	svc.fmp.baseURL = srv.URL + "/fmp"
	svc.finnhub.baseURL = srv.URL + "/finnhub"
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return svc, u
}

func TestBalanceSheetPrefersFMP(t *testing.T) {
	svc, u := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/fmp/balance-sheet-statement": body(`[{"date":"2023-09-30","symbol":"AAPL","period":"FY","reportedCurrency":"USD","totalAssets":352583000000,"totalLiabilities":290437000000,"totalStockholdersEquity":62146000000,"cashAndCashEquivalents":29965000000,"totalDebt":111088000000}]`),
	})

	res, err := svc.BalanceSheet(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "fmp", res.Source)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "annual", res.Data[0].Period)
	assert.Equal(t, "352583000000", res.Data[0].TotalAssets.String())
	assert.Equal(t, []string{"/fmp/balance-sheet-statement"}, u.Hits())
}

func TestBalanceSheetFallsBackToAlphaVantage(t *testing.T) {
	svc, u := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/fmp/balance-sheet-statement": status(http.StatusTooManyRequests),
		"/av/query?BALANCE_SHEET":      body(`{"symbol":"IBM","annualReports":[{"fiscalDateEnding":"2023-12-31","reportedCurrency":"USD","totalAssets":"135241000000","totalLiabilities":"112628000000","totalShareholderEquity":"22533000000","cashAndCashEquivalentsAtCarryingValue":"None","shortLongTermDebtTotal":"56548000000"}]}`),
	})

	res, err := svc.BalanceSheet(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, "alphavantage", res.Source)
	require.Len(t, res.Data, 1)
	assert.True(t, res.Data[0].CashAndEquivalents.IsZero())
	assert.Equal(t, "22533000000", res.Data[0].TotalEquity.String())
	assert.Equal(t, []string{"/fmp/balance-sheet-statement", "/av/query?BALANCE_SHEET"}, u.Hits())
}

func TestAlphaVantageThrottleNoticeFallsToMock(t *testing.T) {
	svc, _ := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/fmp/cash-flow-statement": body(`[]`),
		"/av/query?CASH_FLOW":      body(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`),
	})

	res, err := svc.CashFlow(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, SourceMock, res.Source)
	assert.Len(t, res.Data, 4)
}

func TestAlphaVantageCashFlowSigns(t *testing.T) {
	svc, _ := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/av/query?CASH_FLOW": body(`{"annualReports":[{"fiscalDateEnding":"2023-12-31","reportedCurrency":"USD","operatingCashflow":"1000","capitalExpenditures":"300","dividendPayout":"50"}]}`),
	})

	rows, err := svc.av.CashFlow(context.Background(), "IBM")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "-300", rows[0].CapitalExpenditure.String())
	assert.Equal(t, "700", rows[0].FreeCashFlow.String())
	assert.Equal(t, "-50", rows[0].DividendsPaid.String())
}

func TestCompanyProfileSkipsNamelessPayload(t *testing.T) {
	svc, u := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/fmp/profile":            body(`[]`),
		"/finnhub/stock/profile2": body(`{"name":"Apple Inc","ticker":"AAPL","exchange":"NASDAQ","finnhubIndustry":"Technology","country":"US","currency":"USD","marketCapitalization":2950000.5}`),
	})

	res, err := svc.CompanyProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "finnhub", res.Source)
	assert.Equal(t, "Apple Inc", res.Data.Name)
	assert.Equal(t, "2950000500000", res.Data.MarketCap.String())
	assert.Equal(t, []string{"/fmp/profile", "/finnhub/stock/profile2"}, u.Hits())
}

func TestEarningsCalendarFinnhubFirst(t *testing.T) {
	var gotQuery url.Values
	svc, _ := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/finnhub/calendar/earnings": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			body(`{"earningsCalendar":[{"symbol":"MSFT","date":"2024-05-12","hour":"amc","epsEstimate":2.82,"epsActual":null}]}`)(w, r)
		},
	})

	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	res, err := svc.EarningsCalendar(context.Background(), from, from.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, "finnhub", res.Source)
	assert.Equal(t, "2024-05-10", gotQuery.Get("from"))
	assert.Equal(t, "2024-05-17", gotQuery.Get("to"))
	require.Len(t, res.Data, 1)
	assert.True(t, res.Data[0].EPSEstimate.Valid)
	assert.False(t, res.Data[0].EPSActual.Valid)
}

func TestNewsUsesSevenDayWindow(t *testing.T) {
	var gotQuery url.Values
	svc, _ := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/finnhub/company-news": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			body(`[{"headline":"Apple ships","summary":"s","url":"https://example.com/a","source":"Wire","related":"AAPL,","datetime":1715330000},{"headline":"","url":"https://example.com/b"}]`)(w, r)
		},
	})

	res, err := svc.News(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "finnhub", res.Source)
	assert.Equal(t, "2024-05-03", gotQuery.Get("from"))
	assert.Equal(t, "2024-05-10", gotQuery.Get("to"))
	require.Len(t, res.Data, 1)
	assert.Equal(t, []string{"AAPL"}, res.Data[0].Symbols)
}

func TestNewsFallsThroughToFMP(t *testing.T) {
	svc, u := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/finnhub/company-news": body(`[]`),
		"/fmp/news/stock":       body(`[{"symbol":"AAPL","publishedDate":"2024-05-09 14:30:00","publisher":"Wire","title":"Apple news","url":"https://example.com/n"}]`),
	})

	res, err := svc.News(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "fmp", res.Source)
	assert.Equal(t, time.Date(2024, 5, 9, 14, 30, 0, 0, time.UTC), res.Data[0].Published)
	assert.Equal(t, []string{"/finnhub/company-news", "/fmp/news/stock"}, u.Hits())
}

func TestScreenerMockIsFiltered(t *testing.T) {
	svc := NewService(Config{}, nil)
	res, err := svc.Screener(context.Background(), ScreenerFilter{Sector: "technology", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, SourceMock, res.Source)
	require.Len(t, res.Data, 2)
	for _, r := range res.Data {
		assert.Equal(t, "Technology", r.Sector)
	}
}

func TestSearchAlphaVantage(t *testing.T) {
	svc, _ := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/av/query?SYMBOL_SEARCH": body(`{"bestMatches":[{"1. symbol":"TSCO.LON","2. name":"Tesco PLC","3. type":"Equity","4. region":"United Kingdom","8. currency":"GBX"}]}`),
	})

	res, err := svc.Search(context.Background(), "tesco")
	require.NoError(t, err)
	assert.Equal(t, "alphavantage", res.Source)
	assert.Equal(t, SearchResult{Symbol: "TSCO.LON", Name: "Tesco PLC", Type: "Equity", Region: "United Kingdom", Currency: "GBX"}, res.Data[0])
}

func TestIndicatorAlphaVantageSortedOldestFirst(t *testing.T) {
	svc, _ := newTestService(t, map[string]func(http.ResponseWriter, *http.Request){
		"/av/query?RSI": body(`{"Meta Data":{},"Technical Analysis: RSI":{"2024-05-09":{"RSI":"61.2"},"2024-05-07":{"RSI":"55.0"},"2024-05-08":{"RSI":"58.4"}}}`),
	})

	res, err := svc.Indicator(context.Background(), "AAPL", IndicatorRSI, 14)
	require.NoError(t, err)
	assert.Equal(t, "alphavantage", res.Source)
	require.Len(t, res.Data.Points, 3)
	assert.Equal(t, "2024-05-07", res.Data.Points[0].Date)
	assert.Equal(t, "61.2", res.Data.Points[2].Value.String())
}

func TestNoKeysServesMock(t *testing.T) {
	svc := NewService(Config{}, nil)
	res, err := svc.CompanyProfile(context.Background(), "msft")
	require.NoError(t, err)
	assert.Equal(t, SourceMock, res.Source)
	assert.Equal(t, "Microsoft Corporation", res.Data.Name)
	assert.Equal(t, map[string]bool{"alphavantage": false, "fmp": false, "finnhub": false, "polygon": false, "alpaca": false}, svc.Providers())
}

// rewriteTransport sends every request to target, keeping path and query.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func TestPolygonIndicatorFromAggregates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v2/aggs/ticker/AAPL/range/1/day/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"ticker":"AAPL","status":"OK","resultsCount":4,"results":[`+
			`{"c":1,"t":1704153600000},{"c":2,"t":1704240000000},{"c":3,"t":1704326400000},{"c":4,"t":1704412800000}]}`)
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	p := NewPolygon("pk", &http.Client{Transport: rewriteTransport{target: target}, Timeout: 2 * time.Second})

	series, err := p.Indicator(context.Background(), "AAPL", IndicatorSMA, 2)
	require.NoError(t, err)
	require.Len(t, series.Points, 3)
	assert.Equal(t, "2024-01-03", series.Points[0].Date)
	assert.Equal(t, "3.5", series.Points[2].Value.String())
}

func TestPolygonNewsAndSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pk", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v2/reference/news":
			_, _ = fmt.Fprint(w, `{"results":[{"title":"T","description":"D","article_url":"https://example.com/x","published_utc":"2024-05-09T10:00:00Z","tickers":["AAPL"],"publisher":{"name":"Pub"}}]}`)
		case "/v3/reference/tickers":
			_, _ = fmt.Fprint(w, `{"results":[{"ticker":"AAPL","name":"Apple Inc.","type":"CS","locale":"us","currency_name":"usd"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewPolygon("pk", srv.Client())
	p.baseURL = srv.URL

	news, err := p.News(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "Pub", news[0].Source)

	found, err := p.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "AAPL", found[0].Symbol)
}

type fakeNews struct {
	news  []marketdata.News
	err   error
	block chan struct{}
	req   marketdata.GetNewsRequest
}

func (f *fakeNews) GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
	f.req = req
	if f.block != nil {
		<-f.block
	}
	return f.news, f.err
}

func TestAlpacaNews(t *testing.T) {
	fake := &fakeNews{news: []marketdata.News{
		{Headline: "Alpaca headline", URL: "https://example.com/a", Source: "benzinga", Symbols: []string{"AAPL"}, CreatedAt: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)},
		{Headline: "no url"},
	}}
	a := &Alpaca{configured: true, client: fake}

	items, err := a.News(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpaca headline", items[0].Title)
	assert.Equal(t, []string{"AAPL"}, fake.req.Symbols)

	a.client = &fakeNews{err: errors.New("forbidden")}
	_, err = a.News(context.Background(), "AAPL", time.Now(), time.Now())
	assert.Error(t, err)
}

func TestAlpacaNewsHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	a := &Alpaca{configured: true, client: &fakeNews{block: block}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.News(ctx, "AAPL", time.Now(), time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAlpacaUnconfiguredWithoutSecret(t *testing.T) {
	assert.False(t, NewAlpaca("key", "", "").Configured())
}
