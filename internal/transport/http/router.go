package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gotrader/internal/coins"
	"gotrader/internal/ledger"
	"gotrader/internal/logger"
	"gotrader/internal/report"
	"gotrader/internal/store/journal"
)

type LedgerReader interface {
	Load(coin coins.Coin) (ledger.State, error)
}

type DecisionReader interface {
	ListRecent(ctx context.Context, coin string, limit int) ([]journal.DecisionRecord, error)
}

// Router exposes ledgers, journalled decisions and the performance report.
type Router struct {
	ledgers   LedgerReader
	decisions DecisionReader
	coins     []coins.Coin
}

func NewRouter(ledgers LedgerReader, decisions DecisionReader, list []coins.Coin) *Router {
	return &Router{ledgers: ledgers, decisions: decisions, coins: list}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/coins/:coin/ledger", r.handleLedger)
	group.GET("/coins/:coin/decisions", r.handleDecisions)
	group.GET("/report", r.handleReport)
}

func coinParam(c *gin.Context) (coins.Coin, bool) {
	coin, err := coins.Parse(c.Param("coin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return coin, true
}

func (r *Router) handleLedger(c *gin.Context) {
	coin, ok := coinParam(c)
	if !ok {
		return
	}
	st, err := r.ledgers.Load(coin)
	if errors.Is(err, ledger.ErrLedgerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Warnf("http: load ledger %s: %v", coin, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coin": coin.String(), "state": st})
}

func (r *Router) handleDecisions(c *gin.Context) {
	coin, ok := coinParam(c)
	if !ok {
		return
	}
	if r.decisions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("limit", "30")))
	if limit <= 0 {
		limit = 30
	}
	if limit > 500 {
		limit = 500
	}
	recs, err := r.decisions.ListRecent(c.Request.Context(), coin.String(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coin": coin.String(), "decisions": recs})
}

func (r *Router) handleReport(c *gin.Context) {
	ledgers := make(map[coins.Coin]ledger.WinLossLedger, len(r.coins))
	for _, coin := range r.coins {
		st, err := r.ledgers.Load(coin)
		if errors.Is(err, ledger.ErrLedgerNotFound) {
			continue
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ledgers[coin] = st.WinLoss
	}
	c.JSON(http.StatusOK, report.Summarize(ledgers))
}
