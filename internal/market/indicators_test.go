package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.InDeltaSlice(t, []float64{2, 3, 4}, got, 1e-9)
	assert.Nil(t, SMA([]float64{1, 2}, 3))
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3, 4}, 3)
	// seed 2, k=0.5: 4*0.5+2*0.5=3
	assert.InDeltaSlice(t, []float64{2, 3}, got, 1e-9)
}

func TestRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	got := RSI(rising, 3)
	require.Len(t, got, 3)
	for _, v := range got {
		assert.InDelta(t, 100, v, 1e-9)
	}

	flat := RSI([]float64{5, 5, 5, 5}, 3)
	assert.InDeltaSlice(t, []float64{50}, flat, 1e-9)

	// one gain of 2, one loss of 1 over period 2
	mixed := RSI([]float64{10, 12, 11}, 2)
	require.Len(t, mixed, 1)
	assert.InDelta(t, 100-100/(1+2.0), mixed[0], 1e-9)
}

func TestComputeAlignsDatesWithTail(t *testing.T) {
	bars := []Bar{
		{Date: "2024-01-01", Close: 1},
		{Date: "2024-01-02", Close: 2},
		{Date: "2024-01-03", Close: 3},
		{Date: "2024-01-04", Close: 4},
	}
	series, err := Compute("AAPL", IndicatorSMA, 2, bars)
	require.NoError(t, err)
	require.Len(t, series.Points, 3)
	assert.Equal(t, "2024-01-02", series.Points[0].Date)
	assert.Equal(t, "2024-01-04", series.Points[2].Date)
	assert.Equal(t, "3.5", series.Points[2].Value.String())

	_, err = Compute("AAPL", IndicatorSMA, 0, bars)
	assert.Error(t, err)
}

func TestParseIndicator(t *testing.T) {
	k, err := ParseIndicator("")
	require.NoError(t, err)
	assert.Equal(t, IndicatorSMA, k)

	k, err = ParseIndicator(" RSI ")
	require.NoError(t, err)
	assert.Equal(t, IndicatorRSI, k)

	_, err = ParseIndicator("macd")
	assert.Error(t, err)
}

func TestMockIndicatorIsDeterministicAndOrdered(t *testing.T) {
	a := MockIndicator("AAPL", IndicatorEMA, 10)
	b := MockIndicator("AAPL", IndicatorEMA, 10)
	require.NotEmpty(t, a.Points)
	assert.Equal(t, a, b)
	for i := 1; i < len(a.Points); i++ {
		assert.Less(t, a.Points[i-1].Date, a.Points[i].Date)
	}
}
