package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	returns := Returns([]float64{100, 110, 99})

	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestReturns_TooFewPrices(t *testing.T) {
	assert.Empty(t, Returns([]float64{100}))
	assert.Empty(t, Returns(nil))
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	sma := SMA(closes, 5)
	require.NotNil(t, sma)
	assert.InDelta(t, 3.0, *sma, 1e-9)

	assert.Nil(t, SMA(closes, 6))
}

func TestEMA_InsufficientData(t *testing.T) {
	assert.Nil(t, EMA([]float64{1, 2}, 5))
}

func TestRSI(t *testing.T) {
	// Monotonically rising prices push RSI to 100.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi := RSI(closes, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 100.0, *rsi, 1e-6)

	assert.Nil(t, RSI(closes[:10], 14))
}

func TestMaxDrawdown(t *testing.T) {
	prices := []float64{100, 120, 90, 110, 80}

	dd := MaxDrawdown(prices)
	require.NotNil(t, dd)
	// Peak 120 to trough 80.
	assert.InDelta(t, 1.0/3.0, *dd, 1e-9)

	assert.Nil(t, MaxDrawdown([]float64{100}))
}

func TestMaxDrawdown_MonotonicRise(t *testing.T) {
	dd := MaxDrawdown([]float64{100, 110, 120})
	require.NotNil(t, dd)
	assert.Equal(t, 0.0, *dd)
}

func TestMomentum(t *testing.T) {
	prices := []float64{100, 105, 110}

	m := Momentum(prices, 2)
	require.NotNil(t, m)
	assert.InDelta(t, 0.10, *m, 1e-9)

	assert.Nil(t, Momentum(prices, 3))
}

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.005, 0.015, 0.01}

	sharpe := SharpeRatio(returns, 0, PeriodsPerYear)
	require.NotNil(t, sharpe)
	assert.Greater(t, *sharpe, 0.0)

	assert.Nil(t, SharpeRatio([]float64{0.01}, 0, PeriodsPerYear))
	// Zero variance has no meaningful Sharpe.
	assert.Nil(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, PeriodsPerYear))
}

func TestSortinoRatio_NoDownside(t *testing.T) {
	assert.Nil(t, SortinoRatio([]float64{0.01, 0.02, 0.03}, 0, 0, PeriodsPerYear))
}

func TestVolatility(t *testing.T) {
	vol := Volatility([]float64{100, 102, 101, 103, 99})
	require.NotNil(t, vol)
	assert.Greater(t, *vol, 0.0)

	flat := Volatility([]float64{100, 100, 100})
	require.NotNil(t, flat)
	assert.Equal(t, 0.0, *flat)

	assert.Nil(t, Volatility([]float64{100}))
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01}

	vol := AnnualizedVolatility(returns)
	expected := StdDev(returns) * math.Sqrt(PeriodsPerYear)
	assert.InDelta(t, expected, vol, 1e-12)

	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
}

func TestStatBasics(t *testing.T) {
	data := []float64{2, 4, 6}

	assert.InDelta(t, 4.0, Mean(data), 1e-9)
	assert.InDelta(t, 4.0, Variance(data), 1e-9)
	assert.InDelta(t, 2.0, StdDev(data), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}

	assert.InDelta(t, 1.0, Correlation(x, y), 1e-9)
	assert.Equal(t, 0.0, Correlation(x, []float64{1}))
}
