package apihttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotrader/internal/coins"
	"gotrader/internal/ledger"
	"gotrader/internal/store/journal"
)

type fakeLedgers map[coins.Coin]ledger.State

func (f fakeLedgers) Load(coin coins.Coin) (ledger.State, error) {
	st, ok := f[coin]
	if !ok {
		return ledger.State{}, fmt.Errorf("%s: %w", coin, ledger.ErrLedgerNotFound)
	}
	return st, nil
}

type fakeDecisions struct {
	gotLimit int
}

func (f *fakeDecisions) ListRecent(_ context.Context, coin string, limit int) ([]journal.DecisionRecord, error) {
	f.gotLimit = limit
	return []journal.DecisionRecord{{ID: 1, Coin: coin, RunDate: "2024-03-02", Action: "none_to_buy"}}, nil
}

func newTestServer(t *testing.T, decisions DecisionReader) *Server {
	t.Helper()
	st := ledger.Default()
	st.WinLoss.NBuyWon = 1
	st.WinLoss.DollarAmountBuyWon = decimal.NewFromInt(50)
	srv, err := NewServer(ServerConfig{
		Ledgers:   fakeLedgers{coins.BTC: st},
		Decisions: decisions,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("gotrader_runs_total 1\n"))
		}),
	})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	rec, body := do(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = do(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gotrader_runs_total")
}

func TestLedgerEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := do(t, srv, "/api/coins/BTC/ledger")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "btc", body["coin"])
	state := body["state"].(map[string]any)
	assert.Equal(t, "no_position", state["position"].(map[string]any)["mode"])

	rec, _ = do(t, srv, "/api/coins/eth/ledger")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = do(t, srv, "/api/coins/doge/ledger")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "doge")
}

func TestDecisionsEndpoint(t *testing.T) {
	decisions := &fakeDecisions{}
	srv := newTestServer(t, decisions)

	rec, body := do(t, srv, "/api/coins/btc/decisions?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decisions.gotLimit)
	assert.Len(t, body["decisions"], 1)

	do(t, srv, "/api/coins/btc/decisions?limit=9999")
	assert.Equal(t, 500, decisions.gotLimit)

	rec, _ = do(t, newTestServer(t, nil), "/api/coins/btc/decisions")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec, body := do(t, srv, "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["trades"])
	assert.Len(t, body["coins"], 1)
}

func TestNewServerRequiresLedgers(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
