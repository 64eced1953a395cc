package purchases

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/presalebot/internal/entity"
)

func newTestStore(t *testing.T) *WALStore {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRead(t *testing.T) {
	store := newTestStore(t)

	receipts := []entity.PurchaseReceipt{
		{Kind: "buy", ChainID: 56, Buyer: "0xdead", PaySymbol: "USDT", PayAmount: decimal.NewFromInt(100), TxHash: "0x01", Time: time.Now().UTC()},
		{Kind: "unlock", ChainID: 56, Buyer: "0xdead", TxHash: "0x02", Time: time.Now().UTC()},
	}
	for _, r := range receipts {
		require.NoError(t, store.Append(r))
	}

	records, err := store.ReceiptsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "buy", records[0].Receipt.Kind)
	require.True(t, decimal.NewFromInt(100).Equal(records[0].Receipt.PayAmount))
	require.Equal(t, "unlock", records[1].Receipt.Kind)
	require.Greater(t, records[1].Index, records[0].Index)
}

func TestReceiptsAfterIndex(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append(entity.PurchaseReceipt{Kind: "buy", TxHash: "0x01"}))
	require.NoError(t, store.Append(entity.PurchaseReceipt{Kind: "buy", TxHash: "0x02"}))

	all, err := store.ReceiptsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	tail, err := store.ReceiptsAfter(all[0].Index)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.Equal(t, "0x02", tail[0].Receipt.TxHash)

	none, err := store.ReceiptsAfter(all[1].Index)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAppendRequiresTxHash(t *testing.T) {
	store := newTestStore(t)
	require.Error(t, store.Append(entity.PurchaseReceipt{Kind: "buy"}))
}
