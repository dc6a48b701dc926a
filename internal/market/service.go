package market

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const newsLookback = 7 * 24 * time.Hour

type Service struct {
	av      *AlphaVantage
	fmp     *FMP
	finnhub *Finnhub
	polygon *Polygon
	alpaca  *Alpaca
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

type Config struct {
	Keys          Keys
	Timeout       time.Duration
	AlpacaDataURL string
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := newHTTPClient(cfg.Timeout)
	return &Service{
		av:      NewAlphaVantage(cfg.Keys.AlphaVantage, client),
		fmp:     NewFMP(cfg.Keys.FMP, client),
		finnhub: NewFinnhub(cfg.Keys.Finnhub, client),
		polygon: NewPolygon(cfg.Keys.Polygon, client),
		alpaca:  NewAlpaca(cfg.Keys.AlpacaKey, cfg.Keys.AlpacaSecret, cfg.AlpacaDataURL),
		timeout: client.Timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Providers reports which providers have credentials.
func (s *Service) Providers() map[string]bool {
	return map[string]bool{
		s.av.Name():      s.av.Configured(),
		s.fmp.Name():     s.fmp.Configured(),
		s.finnhub.Name(): s.finnhub.Configured(),
		s.polygon.Name(): s.polygon.Configured(),
		s.alpaca.Name():  s.alpaca.Configured(),
	}
}

func chainOf[T any](s *Service, name string, empty func(T) bool, mock func() T, providers ...Provider[T]) Chain[T] {
	return Chain[T]{
		Name:      name,
		Providers: providers,
		Empty:     empty,
		Mock:      mock,
		Timeout:   s.timeout,
		Logger:    s.logger,
	}
}

func (s *Service) BalanceSheet(ctx context.Context, symbol string) (Result[[]BalanceSheet], error) {
	return chainOf(s, "balance-sheet", emptySlice[BalanceSheet],
		func() []BalanceSheet { return MockBalanceSheet(symbol) },
		Provider[[]BalanceSheet]{Name: s.fmp.Name(), Configured: s.fmp.Configured(), Fetch: func(ctx context.Context) ([]BalanceSheet, error) {
			return s.fmp.BalanceSheet(ctx, symbol)
		}},
		Provider[[]BalanceSheet]{Name: s.av.Name(), Configured: s.av.Configured(), Fetch: func(ctx context.Context) ([]BalanceSheet, error) {
			return s.av.BalanceSheet(ctx, symbol)
		}},
	).Run(ctx)
}

func (s *Service) CashFlow(ctx context.Context, symbol string) (Result[[]CashFlow], error) {
	return chainOf(s, "cash-flow", emptySlice[CashFlow],
		func() []CashFlow { return MockCashFlow(symbol) },
		Provider[[]CashFlow]{Name: s.fmp.Name(), Configured: s.fmp.Configured(), Fetch: func(ctx context.Context) ([]CashFlow, error) {
			return s.fmp.CashFlow(ctx, symbol)
		}},
		Provider[[]CashFlow]{Name: s.av.Name(), Configured: s.av.Configured(), Fetch: func(ctx context.Context) ([]CashFlow, error) {
			return s.av.CashFlow(ctx, symbol)
		}},
	).Run(ctx)
}

func (s *Service) CompanyProfile(ctx context.Context, symbol string) (Result[CompanyProfile], error) {
	empty := func(p CompanyProfile) bool { return strings.TrimSpace(p.Name) == "" }
	return chainOf(s, "company-profile", empty,
		func() CompanyProfile { return MockCompanyProfile(symbol) },
		Provider[CompanyProfile]{Name: s.fmp.Name(), Configured: s.fmp.Configured(), Fetch: func(ctx context.Context) (CompanyProfile, error) {
			return s.fmp.CompanyProfile(ctx, symbol)
		}},
		Provider[CompanyProfile]{Name: s.finnhub.Name(), Configured: s.finnhub.Configured(), Fetch: func(ctx context.Context) (CompanyProfile, error) {
			return s.finnhub.CompanyProfile(ctx, symbol)
		}},
		Provider[CompanyProfile]{Name: s.polygon.Name(), Configured: s.polygon.Configured(), Fetch: func(ctx context.Context) (CompanyProfile, error) {
			return s.polygon.CompanyProfile(ctx, symbol)
		}},
	).Run(ctx)
}

func (s *Service) EarningsCalendar(ctx context.Context, from, to time.Time) (Result[[]EarningsEvent], error) {
	f, t := from.Format(time.DateOnly), to.Format(time.DateOnly)
	return chainOf(s, "earnings-calendar", emptySlice[EarningsEvent],
		func() []EarningsEvent { return MockEarningsCalendar(from, to) },
		Provider[[]EarningsEvent]{Name: s.finnhub.Name(), Configured: s.finnhub.Configured(), Fetch: func(ctx context.Context) ([]EarningsEvent, error) {
			return s.finnhub.EarningsCalendar(ctx, f, t)
		}},
		Provider[[]EarningsEvent]{Name: s.fmp.Name(), Configured: s.fmp.Configured(), Fetch: func(ctx context.Context) ([]EarningsEvent, error) {
			return s.fmp.EarningsCalendar(ctx, f, t)
		}},
	).Run(ctx)
}

func (s *Service) News(ctx context.Context, symbol string) (Result[[]NewsItem], error) {
	to := s.now().UTC()
	from := to.Add(-newsLookback)
	return chainOf(s, "news", emptySlice[NewsItem],
		func() []NewsItem { return MockNews(symbol) },
		Provider[[]NewsItem]{Name: s.finnhub.Name(), Configured: s.finnhub.Configured(), Fetch: func(ctx context.Context) ([]NewsItem, error) {
			return s.finnhub.News(ctx, symbol, from, to)
		}},
		Provider[[]NewsItem]{Name: s.polygon.Name(), Configured: s.polygon.Configured(), Fetch: func(ctx context.Context) ([]NewsItem, error) {
			return s.polygon.News(ctx, symbol, from, to)
		}},
		Provider[[]NewsItem]{Name: s.alpaca.Name(), Configured: s.alpaca.Configured(), Fetch: func(ctx context.Context) ([]NewsItem, error) {
			return s.alpaca.News(ctx, symbol, from, to)
		}},
		Provider[[]NewsItem]{Name: s.fmp.Name(), Configured: s.fmp.Configured(), Fetch: func(ctx context.Context) ([]NewsItem, error) {
			return s.fmp.News(ctx, symbol)
		}},
	).Run(ctx)
}

func (s *Service) Screener(ctx context.Context, filter ScreenerFilter) (Result[[]ScreenerRow], error) {
	return chainOf(s, "screener", emptySlice[ScreenerRow],
		func() []ScreenerRow { return MockScreener(filter) },
		Provider[[]ScreenerRow]{Name: s.fmp.Name(), Configured: s.fmp.Configured(), Fetch: func(ctx context.Context) ([]ScreenerRow, error) {
			return s.fmp.Screener(ctx, filter)
		}},
	).Run(ctx)
}

func (s *Service) Search(ctx context.Context, q string) (Result[[]SearchResult], error) {
	return chainOf(s, "search", emptySlice[SearchResult],
		func() []SearchResult { return MockSearch(q) },
		Provider[[]SearchResult]{Name: s.av.Name(), Configured: s.av.Configured(), Fetch: func(ctx context.Context) ([]SearchResult, error) {
			return s.av.Search(ctx, q)
		}},
		Provider[[]SearchResult]{Name: s.finnhub.Name(), Configured: s.finnhub.Configured(), Fetch: func(ctx context.Context) ([]SearchResult, error) {
			return s.finnhub.Search(ctx, q)
		}},
		Provider[[]SearchResult]{Name: s.polygon.Name(), Configured: s.polygon.Configured(), Fetch: func(ctx context.Context) ([]SearchResult, error) {
			return s.polygon.Search(ctx, q)
		}},
	).Run(ctx)
}

func (s *Service) Indicator(ctx context.Context, symbol string, kind Indicator, period int) (Result[IndicatorSeries], error) {
	empty := func(v IndicatorSeries) bool { return len(v.Points) == 0 }
	return chainOf(s, "indicators", empty,
		func() IndicatorSeries { return MockIndicator(symbol, kind, period) },
		Provider[IndicatorSeries]{Name: s.av.Name(), Configured: s.av.Configured(), Fetch: func(ctx context.Context) (IndicatorSeries, error) {
			return s.av.Indicator(ctx, symbol, kind, period)
		}},
		Provider[IndicatorSeries]{Name: s.polygon.Name(), Configured: s.polygon.Configured(), Fetch: func(ctx context.Context) (IndicatorSeries, error) {
			return s.polygon.Indicator(ctx, symbol, kind, period)
		}},
	).Run(ctx)
}
