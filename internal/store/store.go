// Package store owns the shared chain snapshot. It is the single writer:
// every refresh path publishes through one of the setters here, and no
// setter can tear two unrelated keys within one publish.
package store

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/events"
)

// Store holds the snapshot for the active chain behind a mutex.
type Store struct {
	mu        sync.RWMutex
	snap      entity.ChainSnapshot
	broadcast *events.SnapshotBroadcaster
}

// New creates a store for the given chain. The broadcaster may be nil.
func New(chainID uint64, broadcast *events.SnapshotBroadcaster) *Store {
	return &Store{
		snap:      emptySnapshot(chainID),
		broadcast: broadcast,
	}
}

func emptySnapshot(chainID uint64) entity.ChainSnapshot {
	return entity.ChainSnapshot{
		ChainID:  chainID,
		Prices:   make(map[string]decimal.Decimal),
		Balances: make(map[string]decimal.Decimal),
	}
}

func copySnapshot(s entity.ChainSnapshot) entity.ChainSnapshot {
	out := s
	out.Prices = make(map[string]decimal.Decimal, len(s.Prices))
	for k, v := range s.Prices {
		out.Prices[k] = v
	}
	out.Balances = make(map[string]decimal.Decimal, len(s.Balances))
	for k, v := range s.Balances {
		out.Balances[k] = v
	}
	return out
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() entity.ChainSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.snap)
}

// ChainID returns the chain the snapshot currently belongs to.
func (s *Store) ChainID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.ChainID
}

func (s *Store) publishLocked() {
	if s.broadcast != nil {
		s.broadcast.Publish(copySnapshot(s.snap))
	}
}

// SetSaleTotals publishes sale status and both totals as one atomic update.
func (s *Store) SetSaleTotals(status bool, sold, forSale decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.SaleStatus = status
	s.snap.TotalTokensSold = sold
	s.snap.TotalTokensForSale = forSale
	s.publishLocked()
}

// SetTotalSold updates only the sold counter.
func (s *Store) SetTotalSold(sold decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.TotalTokensSold = sold
	s.publishLocked()
}

// SetBalance updates one symbol's wallet balance.
func (s *Store) SetBalance(symbol string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Balances[symbol] = balance
	s.publishLocked()
}

// SetPrice updates one payment token's unit price.
func (s *Store) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Prices[symbol] = price
	s.publishLocked()
}

// SetLocked records the buyer's locked sale-token allocation. It also
// mirrors the value under the sale token's symbol in Balances, matching
// how the presale exposes the locked amount as the buyer's holding.
func (s *Store) SetLocked(saleSymbol string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LockedAmount = amount
	s.snap.Balances[saleSymbol] = amount
	s.publishLocked()
}

// Reset discards the whole snapshot and rebinds the store to a new
// chain. Stale balances and prices from the previous chain must never
// be shown against the new chain's tokens.
func (s *Store) Reset(chainID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = emptySnapshot(chainID)
	s.publishLocked()
}
