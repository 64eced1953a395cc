// Package purchases persists confirmed buy/unlock receipts in a WAL so
// purchase history survives restarts and can be streamed to the dashboard.
package purchases

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/presalebot/internal/entity"
)

const (
	defaultJournalDir  = "./wal/purchases"
	journalSegmentSize = 1000
	journalMaxSegments = 100
	journalKeyPrefix   = "purchase_"
)

// WALStore is a gowal-backed append-only purchase journal.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes the journal under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: journalSegmentSize,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init purchase journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes one receipt to the journal.
func (s *WALStore) Append(receipt entity.PurchaseReceipt) error {
	if s == nil || s.wal == nil {
		return errors.New("purchase journal is not initialized")
	}
	if receipt.TxHash == "" {
		return errors.New("purchase receipt tx hash is required")
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return errors.Wrap(err, "marshal purchase receipt")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, journalKeyPrefix+receipt.Kind, payload)
}

// ReceiptsAfter returns all receipts written after the provided index.
func (s *WALStore) ReceiptsAfter(index uint64) ([]entity.PurchaseReceiptRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("purchase journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]entity.PurchaseReceiptRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, journalKeyPrefix) {
			continue
		}
		var receipt entity.PurchaseReceipt
		if err := json.Unmarshal(payload, &receipt); err != nil {
			return nil, errors.Wrapf(err, "unmarshal purchase receipt at index %d", idx)
		}
		records = append(records, entity.PurchaseReceiptRecord{Index: idx, Receipt: receipt})
	}
	return records, nil
}

// Close flushes and closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
