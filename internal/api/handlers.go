package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	mode := "paper"
	if s.liveMode {
		mode = "live"
	}

	status := gin.H{
		"mode":       mode,
		"started_at": s.startedAt,
		"ws_clients": s.hub.ClientCount(),
	}
	if last := s.eng.LastReport(); last != nil {
		status["last_cycle_id"] = last.ID
		status["last_cycle_at"] = last.EndTime
		status["last_cycle_duration"] = last.Duration.String()
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handlePortfolio(c *gin.Context) {
	cash, err := s.book.Cash()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	positions, err := s.book.Positions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	quotes := make(map[string]float64, len(positions))
	marketValue := 0.0
	holdings := make([]gin.H, 0, len(positions))
	for ticker, pos := range positions {
		price := pos.AvgCost
		if quote, err := s.client.GetQuote(ticker); err == nil && quote != nil && quote.Last > 0 {
			price = quote.Last
			quotes[ticker] = price
		}
		value := pos.Quantity * price
		marketValue += value
		holdings = append(holdings, gin.H{
			"ticker":         ticker,
			"quantity":       pos.Quantity,
			"avg_cost":       pos.AvgCost,
			"last_price":     price,
			"market_value":   value,
			"unrealized_pnl": (price - pos.AvgCost) * pos.Quantity,
		})
	}

	equity, err := s.book.EquityEstimate(quotes)
	if err != nil {
		equity = cash + marketValue
	}

	c.JSON(http.StatusOK, gin.H{
		"cash":         cash,
		"market_value": marketValue,
		"equity":       equity,
		"positions":    holdings,
	})
}

func (s *Server) handleTrades(c *gin.Context) {
	history, err := s.book.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit := parseLimit(c, 100)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{"trades": history, "count": len(history)})
}

func (s *Server) handleDecisions(c *gin.Context) {
	last := s.eng.LastReport()
	if last == nil {
		c.JSON(http.StatusOK, gin.H{"decisions": []any{}, "count": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cycle_id":  last.ID,
		"decisions": last.Decisions,
		"count":     len(last.Decisions),
	})
}

func (s *Server) handleLastCycle(c *gin.Context) {
	last := s.eng.LastReport()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cycle has completed yet"})
		return
	}
	c.JSON(http.StatusOK, last)
}

func (s *Server) handleStats(c *gin.Context) {
	history, err := s.book.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ComputeTradeStats(history))
}

// handleRunCycle triggers one cycle outside the schedule, for manual
// testing and dashboards.
func (s *Server) handleRunCycle(c *gin.Context) {
	report, err := s.eng.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
