package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/server"
)

const (
	defaultEarningsWindow = 7 * 24 * time.Hour
	maxEarningsWindow     = 90 * 24 * time.Hour
	mockMaxAge            = 60
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^]{1,12}$`)

// StepGenerator produces the dashboard loading-step lines for a topic.
type StepGenerator interface {
	LoadingSteps(ctx context.Context, topic string) []string
}

type Handler struct {
	svc    *Service
	steps  StepGenerator
	logger *zap.Logger
}

func NewHandler(svc *Service, steps StepGenerator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, steps: steps, logger: logger}
}

type LoadingStepsRequest struct {
	Topic string `json:"topic"`
}

type LoadingStepsResponse struct {
	Steps []string `json:"steps"`
}

func validateSymbol(s string) error {
	return validation.Validate(s,
		validation.Required.Error("symbol is required"),
		validation.Match(symbolPattern).Error("symbol is invalid"),
	)
}

func symbolParam(r *http.Request) (string, error) {
	s := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if err := validateSymbol(s); err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// writeResult sets the cache and source headers and writes the payload.
func writeResult[T any](w http.ResponseWriter, res Result[T], maxAge int) {
	if res.Source == SourceMock {
		maxAge = mockMaxAge
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	w.Header().Set("X-Data-Source", res.Source)
	server.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, route string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		server.WriteError(w, http.StatusGatewayTimeout, "request timed out")
		return
	}
	h.logger.Error("market request failed", zap.String("route", route), zap.Error(err))
	server.WriteError(w, http.StatusBadGateway, "failed to fetch "+route)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": h.svc.Providers(),
	})
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.BalanceSheet(r.Context(), symbol)
	if err != nil {
		h.fail(w, "balance-sheet", err)
		return
	}
	writeResult(w, res, 3600)
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.CashFlow(r.Context(), symbol)
	if err != nil {
		h.fail(w, "cash-flow", err)
		return
	}
	writeResult(w, res, 3600)
}

func (h *Handler) CompanyProfile(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.CompanyProfile(r.Context(), symbol)
	if err != nil {
		h.fail(w, "company-profile", err)
		return
	}
	writeResult(w, res, 3600)
}

func (h *Handler) EarningsCalendar(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.dateRange(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.EarningsCalendar(r.Context(), from, to)
	if err != nil {
		h.fail(w, "earnings-calendar", err)
		return
	}
	writeResult(w, res, 900)
}

// dateRange reads from/to as YYYY-MM-DD, defaulting to the next seven days.
func (h *Handler) dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	today := h.svc.now().UTC().Truncate(24 * time.Hour)

	from := today
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = t
	}
	to := from.Add(defaultEarningsWindow)
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = t
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	if to.Sub(from) > maxEarningsWindow {
		return time.Time{}, time.Time{}, errors.New("date range must be 90 days or less")
	}
	return from, to, nil
}

func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.News(r.Context(), symbol)
	if err != nil {
		h.fail(w, "news", err)
		return
	}
	writeResult(w, res, 300)
}

func (h *Handler) Screener(w http.ResponseWriter, r *http.Request) {
	filter, err := parseScreenerFilter(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Screener(r.Context(), filter)
	if err != nil {
		h.fail(w, "screener", err)
		return
	}
	writeResult(w, res, 300)
}

func parseScreenerFilter(r *http.Request) (ScreenerFilter, error) {
	q := r.URL.Query()
	f := ScreenerFilter{
		Sector:   strings.TrimSpace(q.Get("sector")),
		Exchange: strings.TrimSpace(q.Get("exchange")),
		Limit:    50,
	}

	bounds := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"marketCapMin", &f.MarketCapMin},
		{"marketCapMax", &f.MarketCapMax},
		{"priceMin", &f.PriceMin},
		{"priceMax", &f.PriceMax},
	}
	for _, b := range bounds {
		s := q.Get(b.name)
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return f, fmt.Errorf("%s must be a non-negative number", b.name)
		}
		*b.dst = d
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, errors.New("limit must be an integer")
		}
		f.Limit = n
	}
	const limitMsg = "limit must be between 1 and 250"
	err := validation.Validate(f.Limit,
		validation.Required.Error(limitMsg),
		validation.Min(1).Error(limitMsg),
		validation.Max(250).Error(limitMsg),
	)
	return f, err
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if err := validation.Validate(q,
		validation.Required.Error("q is required"),
		validation.Length(1, 64).Error("q must be 64 characters or less"),
	); err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.fail(w, "search", err)
		return
	}
	writeResult(w, res, 3600)
}

func (h *Handler) Indicators(w http.ResponseWriter, r *http.Request) {
	symbol, err := symbolParam(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := ParseIndicator(r.URL.Query().Get("indicator"))
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	period := DefaultPeriod
	if s := r.URL.Query().Get("period"); s != "" {
		period, err = strconv.Atoi(s)
		if err != nil {
			server.WriteError(w, http.StatusBadRequest, "period must be an integer")
			return
		}
	}
	periodMsg := fmt.Sprintf("period must be between 1 and %d", maxPeriod)
	if err := validation.Validate(period,
		validation.Required.Error(periodMsg),
		validation.Min(1).Error(periodMsg),
		validation.Max(maxPeriod).Error(periodMsg),
	); err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Indicator(r.Context(), symbol, kind, period)
	if err != nil {
		h.fail(w, "indicators", err)
		return
	}
	writeResult(w, res, 600)
}

func (h *Handler) LoadingSteps(w http.ResponseWriter, r *http.Request) {
	var req LoadingStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		server.WriteError(w, http.StatusBadRequest, "topic is required")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	server.WriteJSON(w, http.StatusOK, LoadingStepsResponse{Steps: h.steps.LoadingSteps(r.Context(), topic)})
}

// NewRouter mounts the proxy routes. limiter may be nil.
func NewRouter(h *Handler, limiter *server.RateLimiter, logger *zap.Logger) http.Handler {
	r := server.NewRouter(logger)

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Get("/balance-sheet", h.BalanceSheet)
		r.Get("/cash-flow", h.CashFlow)
		r.Get("/company-profile", h.CompanyProfile)
		r.Get("/earnings-calendar", h.EarningsCalendar)
		r.Get("/news", h.News)
		r.Get("/screener", h.Screener)
		r.Get("/search", h.Search)
		r.Get("/indicators", h.Indicators)
		r.Post("/loading-steps", h.LoadingSteps)
	})

	return r
}
