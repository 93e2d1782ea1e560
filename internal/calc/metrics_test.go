package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestCalculateMetricsEmpty(t *testing.T) {
	m := CalculateMetrics(nil)
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.Empty(t, m.BySymbol)
}

func TestCalculateMetrics(t *testing.T) {
	trades := []ClosedTrade{
		{Symbol: "AAPL", ProfitLoss: 5000, NetProfit: fp(3256.67), RiskAmount: fp(2500)},
		{Symbol: "AAPL", ProfitLoss: -2500, RiskAmount: fp(2500)},
		{Symbol: "TSLA", ProfitLoss: 1250, NetProfit: fp(1000), RiskAmount: fp(2500)},
		{Symbol: "TSLA", ProfitLoss: 0},
	}

	m := CalculateMetrics(trades)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.Wins)
	assert.Equal(t, 1, m.Losses)
	assert.Equal(t, 1, m.Breakevens)
	assert.Equal(t, 50.0, m.WinRate)

	// grossProfit 6250, grossLoss 2500
	assert.Equal(t, 2.5, m.ProfitFactor)

	// winRate 0.5 * avgWin 3125 - lossRate 0.5 * avgLoss 2500 = 312.50
	assert.Equal(t, 312.5, m.Expectancy)

	assert.Equal(t, 3750.0, m.TotalPnL)
	// 3256.67 + (-2500 fallback) + 1000 + 0
	assert.Equal(t, 1756.67, m.TotalNetPnL)

	// (2 - 1 + 0.5) / 4
	assert.Equal(t, 0.38, m.AverageRMultiple)

	assert.Equal(t, 3125.0, m.AverageWin)
	assert.Equal(t, -2500.0, m.AverageLoss)
	assert.Equal(t, 5000.0, m.LargestWin)
	assert.Equal(t, -2500.0, m.LargestLoss)

	// Sorted by total P&L descending
	assert.Equal(t, []SymbolMetrics{
		{Symbol: "AAPL", Count: 2, TotalPnL: 2500, Wins: 1, Losses: 1},
		{Symbol: "TSLA", Count: 2, TotalPnL: 1250, Wins: 1, Losses: 0},
	}, m.BySymbol)
}

func TestCalculateMetricsProfitFactorNoLosses(t *testing.T) {
	m := CalculateMetrics([]ClosedTrade{
		{Symbol: "NVDA", ProfitLoss: 100},
		{Symbol: "NVDA", ProfitLoss: 200},
	})
	assert.True(t, math.IsInf(m.ProfitFactor, 1))

	// All breakevens: no profit either, factor stays zero
	m = CalculateMetrics([]ClosedTrade{{Symbol: "NVDA", ProfitLoss: 0}})
	assert.Equal(t, 0.0, m.ProfitFactor)
}
