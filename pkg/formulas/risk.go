package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio from periodic returns.
//
//	Sharpe = (Mean Return - Periodic Risk-free Rate) / Std Dev of Returns
//	Annualized: Sharpe × sqrt(periods per year)
//
// riskFreeRate is annual, as a decimal. Returns nil when there is not
// enough data or the return series has zero variance.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

// SortinoRatio calculates the annualized Sortino ratio, which penalizes only
// downside volatility below the target return. Returns nil when no returns
// fall below the target.
func SortinoRatio(returns []float64, riskFreeRate, targetReturn float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	periodicTarget := targetReturn / float64(periodsPerYear)

	var downsideSquaredSum float64
	downsideCount := 0
	for _, ret := range returns {
		if ret < periodicTarget {
			deviation := ret - periodicTarget
			downsideSquaredSum += deviation * deviation
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return nil
	}

	downsideDeviation := math.Sqrt(downsideSquaredSum / float64(downsideCount))
	if downsideDeviation == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sortino := (Mean(returns) - periodicRiskFree) / downsideDeviation
	annualized := sortino * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

// MaxDrawdown calculates the maximum peak-to-trough decline of a price
// series as a positive fraction (0.25 = 25% loss from peak). Returns nil
// when there is not enough data.
func MaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	return &maxDrawdown
}

// Momentum calculates the percentage price change over the last n periods.
// Returns nil when there is not enough data.
func Momentum(prices []float64, periods int) *float64 {
	if len(prices) < periods+1 {
		return nil
	}

	start := prices[len(prices)-periods-1]
	if start == 0 {
		return nil
	}

	momentum := (prices[len(prices)-1] - start) / start
	return &momentum
}

// Volatility calculates annualized volatility from a daily price series.
// Returns nil when there is not enough data.
func Volatility(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	vol := AnnualizedVolatility(Returns(prices))
	return &vol
}
