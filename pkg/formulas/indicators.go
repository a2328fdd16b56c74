package formulas

import (
	"github.com/markcheno/go-talib"
)

// RSI calculates the Relative Strength Index over the given period.
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Returns nil when there is not enough data.
func RSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}
	return lastValid(talib.Rsi(closes, period))
}

// SMA calculates the simple moving average over the given period.
// Returns nil when there is not enough data.
func SMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	return lastValid(talib.Sma(closes, period))
}

// EMA calculates the exponential moving average over the given period.
// Returns nil when there is not enough data.
func EMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	return lastValid(talib.Ema(closes, period))
}

// ATR calculates the Average True Range over the given period.
// Returns nil when there is not enough data.
func ATR(highs, lows, closes []float64, period int) *float64 {
	if len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}
	return lastValid(talib.Atr(highs, lows, closes, period))
}

// lastValid returns the final element of a talib output series, or nil if
// the series is empty or ends in NaN padding.
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	last := series[len(series)-1]
	if isNaN(last) {
		return nil
	}
	return &last
}

func isNaN(f float64) bool {
	return f != f
}
