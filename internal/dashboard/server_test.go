package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/events"
	"github.com/vadiminshakov/presalebot/internal/store"
)

func TestHandleSnapshot(t *testing.T) {
	st := store.New(56, nil)
	st.SetSaleTotals(true, decimal.NewFromInt(100), decimal.NewFromInt(1000))
	st.SetBalance("USDT", decimal.NewFromInt(42))

	srv := NewServer(":0", st, events.NewSnapshotBroadcaster(8), nil)

	rec := httptest.NewRecorder()
	srv.handleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap entity.ChainSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, uint64(56), snap.ChainID)
	require.True(t, snap.SaleStatus)
	require.True(t, decimal.NewFromInt(42).Equal(snap.Balances["USDT"]))
}

func TestHandleSnapshotUnavailable(t *testing.T) {
	srv := NewServer(":0", nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.handleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleIndex(t *testing.T) {
	srv := NewServer(":0", nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Presale dashboard")

	rec = httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
