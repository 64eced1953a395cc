// Package sync pulls on-chain presale state into the shared snapshot.
// Individual read failures never abort the rest of a refresh: a token
// whose read fails simply keeps its previous value.
package sync

import (
	"context"
	standardsync "sync"

	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/registry"
)

// Reader is the read side of the contract gateway.
type Reader interface {
	SaleStatus(ctx context.Context) (bool, error)
	TotalTokensSold(ctx context.Context) (*big.Int, error)
	TotalTokensForSale(ctx context.Context) (*big.Int, error)
	TokenPrice(ctx context.Context, token common.Address) (*big.Int, error)
	NativeRate(ctx context.Context) (*big.Int, error)
	BuyerAmount(ctx context.Context, buyer common.Address) (*big.Int, error)
	Balance(ctx context.Context, token entity.Token, holder common.Address) (*big.Int, error)
}

// Publisher is the write side of the snapshot store.
type Publisher interface {
	SetSaleTotals(status bool, sold, forSale decimal.Decimal)
	SetTotalSold(sold decimal.Decimal)
	SetBalance(symbol string, balance decimal.Decimal)
	SetPrice(symbol string, price decimal.Decimal)
	SetLocked(saleSymbol string, amount decimal.Decimal)
}

// Synchronizer refreshes balances, prices and sale totals for one chain.
type Synchronizer struct {
	chain  registry.Chain
	reader Reader
	pub    Publisher
	l      *zap.Logger
}

// New creates a synchronizer bound to the given chain configuration.
func New(chain registry.Chain, reader Reader, pub Publisher, l *zap.Logger) *Synchronizer {
	return &Synchronizer{chain: chain, reader: reader, pub: pub, l: l}
}

// RefreshInitialData reads sale status and both totals concurrently and
// publishes them as a single atomic snapshot update, then refreshes all
// token prices. If any of the three core reads fails the totals publish
// is skipped entirely so consumers never observe a torn update.
func (s *Synchronizer) RefreshInitialData(ctx context.Context) error {
	var (
		wg        standardsync.WaitGroup
		status    bool
		sold      *big.Int
		forSale   *big.Int
		statusErr error
		soldErr   error
		saleErr   error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		status, statusErr = s.reader.SaleStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		sold, soldErr = s.reader.TotalTokensSold(ctx)
	}()
	go func() {
		defer wg.Done()
		forSale, saleErr = s.reader.TotalTokensForSale(ctx)
	}()
	go func() {
		defer wg.Done()
		s.RefreshPrices(ctx)
	}()
	wg.Wait()

	for _, err := range []error{statusErr, soldErr, saleErr} {
		if err != nil {
			return errors.Wrap(err, "refresh initial data")
		}
	}

	dec := s.chain.SaleToken.Decimals
	s.pub.SetSaleTotals(status, entity.FromRaw(sold, dec), entity.FromRaw(forSale, dec))
	return nil
}

// RefreshTotalSold re-reads only the sold counter.
func (s *Synchronizer) RefreshTotalSold(ctx context.Context) error {
	sold, err := s.reader.TotalTokensSold(ctx)
	if err != nil {
		return errors.Wrap(err, "refresh total sold")
	}
	s.pub.SetTotalSold(entity.FromRaw(sold, s.chain.SaleToken.Decimals))
	return nil
}

// RefreshBalances reads the wallet balance of every whitelisted payment
// token. Each token is independent: a failed read is logged and skipped,
// leaving that symbol's previous value in place. No-op without an address.
func (s *Synchronizer) RefreshBalances(ctx context.Context, address *common.Address) {
	if address == nil {
		return
	}
	var wg standardsync.WaitGroup
	for _, token := range s.chain.PaymentTokens {
		wg.Add(1)
		go func(token entity.Token) {
			defer wg.Done()
			raw, err := s.reader.Balance(ctx, token, *address)
			if err != nil {
				s.l.Warn("balance refresh failed",
					zap.String("symbol", token.Symbol),
					zap.Error(err))
				return
			}
			s.pub.SetBalance(token.Symbol, entity.FromRaw(raw, token.Decimals))
		}(token)
	}
	wg.Wait()
}

// RefreshLockedBalance reads the buyer's locked sale-token allocation.
// The conversion uses the sale token's decimals, not any payment
// token's. No-op without an address.
func (s *Synchronizer) RefreshLockedBalance(ctx context.Context, address *common.Address) {
	if address == nil {
		return
	}
	raw, err := s.reader.BuyerAmount(ctx, *address)
	if err != nil {
		s.l.Warn("locked balance refresh failed", zap.Error(err))
		return
	}
	sale := s.chain.SaleToken
	s.pub.SetLocked(sale.Symbol, entity.FromRaw(raw, sale.Decimals))
}

// RefreshPrices reads the unit rate of every whitelisted payment token:
// the per-token price call for ERC-20s, the native rate call for the
// native-coin sentinel. Failures are per-token and non-fatal.
func (s *Synchronizer) RefreshPrices(ctx context.Context) {
	for _, token := range s.chain.PaymentTokens {
		var (
			raw *big.Int
			err error
		)
		if token.IsNative() {
			raw, err = s.reader.NativeRate(ctx)
		} else {
			raw, err = s.reader.TokenPrice(ctx, *token.Address)
		}
		if err != nil {
			s.l.Warn("price refresh failed",
				zap.String("symbol", token.Symbol),
				zap.Error(err))
			continue
		}
		s.pub.SetPrice(token.Symbol, entity.FromRaw(raw, token.Decimals))
	}
}
