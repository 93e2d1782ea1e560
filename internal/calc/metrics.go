package calc

import (
	"math"
	"sort"
)

// ClosedTrade is the slice of a trade record the aggregate metrics need.
// NetProfit and RiskAmount are nil when the trade predates those fields.
type ClosedTrade struct {
	Symbol     string
	ProfitLoss float64
	NetProfit  *float64
	RiskAmount *float64
}

// Metrics aggregates closed trades into performance statistics.
type Metrics struct {
	TotalTrades      int     `json:"totalTrades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	Breakevens       int     `json:"breakevens"`
	WinRate          float64 `json:"winRate"`      // percentage
	ProfitFactor     float64 `json:"profitFactor"` // +Inf serialized by the API as null
	Expectancy       float64 `json:"expectancy"`
	TotalPnL         float64 `json:"totalPnL"`
	TotalNetPnL      float64 `json:"totalNetPnL"`
	AverageRMultiple float64 `json:"averageRMultiple"`
	AverageWin       float64 `json:"averageWin"`
	AverageLoss      float64 `json:"averageLoss"`
	LargestWin       float64 `json:"largestWin"`
	LargestLoss      float64 `json:"largestLoss"`

	BySymbol []SymbolMetrics `json:"bySymbol"`
}

// SymbolMetrics groups performance by ticker.
type SymbolMetrics struct {
	Symbol   string  `json:"symbol"`
	Count    int     `json:"count"`
	TotalPnL float64 `json:"totalPnL"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
}

// CalculateMetrics computes the performance statistics over closed trades.
// An empty input yields the zero Metrics value.
func CalculateMetrics(trades []ClosedTrade) Metrics {
	m := Metrics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var grossProfit, grossLoss float64
	var totalR float64
	bySymbol := make(map[string]*SymbolMetrics)

	for _, t := range trades {
		status := WinLossStatus(t.ProfitLoss)
		switch status {
		case StatusWin:
			m.Wins++
			grossProfit += t.ProfitLoss
			if t.ProfitLoss > m.LargestWin {
				m.LargestWin = t.ProfitLoss
			}
		case StatusLoss:
			m.Losses++
			grossLoss += -t.ProfitLoss
			if t.ProfitLoss < m.LargestLoss {
				m.LargestLoss = t.ProfitLoss
			}
		default:
			m.Breakevens++
		}

		m.TotalPnL += t.ProfitLoss
		if t.NetProfit != nil {
			m.TotalNetPnL += *t.NetProfit
		} else {
			m.TotalNetPnL += t.ProfitLoss
		}

		if t.RiskAmount != nil && *t.RiskAmount != 0 && t.ProfitLoss != 0 {
			totalR += RMultiple(t.ProfitLoss, *t.RiskAmount)
		}

		s, ok := bySymbol[t.Symbol]
		if !ok {
			s = &SymbolMetrics{Symbol: t.Symbol}
			bySymbol[t.Symbol] = s
		}
		s.Count++
		s.TotalPnL += t.ProfitLoss
		switch status {
		case StatusWin:
			s.Wins++
		case StatusLoss:
			s.Losses++
		}
	}

	total := float64(len(trades))
	m.WinRate = round2(float64(m.Wins) / total * 100)

	switch {
	case grossLoss == 0 && grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	case grossLoss == 0:
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = round2(grossProfit / grossLoss)
	}

	if m.Wins > 0 || m.Losses > 0 {
		var avgWin, avgLoss float64
		if m.Wins > 0 {
			avgWin = grossProfit / float64(m.Wins)
		}
		if m.Losses > 0 {
			avgLoss = grossLoss / float64(m.Losses)
		}
		winRate := float64(m.Wins) / total
		lossRate := 1 - winRate
		m.Expectancy = round2(winRate*avgWin - lossRate*avgLoss)
		if m.Wins > 0 {
			m.AverageWin = round2(avgWin)
		}
		if m.Losses > 0 {
			// Reported signed, so an average loss reads negative.
			m.AverageLoss = round2(-avgLoss)
		}
	}

	m.TotalPnL = round2(m.TotalPnL)
	m.TotalNetPnL = round2(m.TotalNetPnL)
	m.AverageRMultiple = round2(totalR / total)

	m.BySymbol = make([]SymbolMetrics, 0, len(bySymbol))
	for _, s := range bySymbol {
		s.TotalPnL = round2(s.TotalPnL)
		m.BySymbol = append(m.BySymbol, *s)
	}
	sort.Slice(m.BySymbol, func(i, j int) bool {
		return m.BySymbol[i].TotalPnL > m.BySymbol[j].TotalPnL
	})

	return m
}
