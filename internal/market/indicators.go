package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultPeriod = 14
	maxPeriod     = 200
)

type Bar struct {
	Date  string
	Close float64
}

func ParseIndicator(s string) (Indicator, error) {
	switch k := Indicator(strings.ToLower(strings.TrimSpace(s))); k {
	case IndicatorSMA, IndicatorEMA, IndicatorRSI:
		return k, nil
	case "":
		return IndicatorSMA, nil
	}
	return "", fmt.Errorf("unsupported indicator %q", s)
}

// Compute derives an indicator series from closes ordered oldest first.
func Compute(symbol string, kind Indicator, period int, bars []Bar) (IndicatorSeries, error) {
	if period <= 0 || period > maxPeriod {
		return IndicatorSeries{}, fmt.Errorf("period must be between 1 and %d", maxPeriod)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	var values []float64
	switch kind {
	case IndicatorSMA:
		values = SMA(closes, period)
	case IndicatorEMA:
		values = EMA(closes, period)
	case IndicatorRSI:
		values = RSI(closes, period)
	default:
		return IndicatorSeries{}, fmt.Errorf("unsupported indicator %q", kind)
	}

	series := IndicatorSeries{Symbol: symbol, Indicator: kind, Period: period}
	// values align with the tail of bars
	offset := len(bars) - len(values)
	for i, v := range values {
		series.Points = append(series.Points, IndicatorPoint{
			Date:  bars[offset+i].Date,
			Value: decimal.NewFromFloat(v).Round(4),
		})
	}
	return series, nil
}

// SMA returns len(closes)-period+1 simple moving averages.
func SMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}

	out := make([]float64, 0, len(closes)-period+1)
	var sum float64
	for i, c := range closes {
		sum += c
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA is seeded with the SMA of the first period closes.
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}

	k := 2 / float64(period+1)
	var seed float64
	for _, c := range closes[:period] {
		seed += c
	}
	prev := seed / float64(period)

	out := make([]float64, 0, len(closes)-period+1)
	out = append(out, prev)
	for _, c := range closes[period:] {
		prev = c*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// RSI uses Wilder smoothing and returns len(closes)-period values.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
