// Package app wires the presale client together: registry chain, RPC
// client, wallet, gateway, snapshot store, synchronizer and purchase
// orchestrator. It owns the chain-switch lifecycle: a switch discards
// the whole snapshot and rebuilds the stack so in-flight reads from the
// old chain can never land in the new chain's state.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/presalebot/config"
	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/events"
	"github.com/vadiminshakov/presalebot/internal/gateway"
	"github.com/vadiminshakov/presalebot/internal/registry"
	"github.com/vadiminshakov/presalebot/internal/services/purchase"
	syncsvc "github.com/vadiminshakov/presalebot/internal/services/sync"
	"github.com/vadiminshakov/presalebot/internal/store"
	"github.com/vadiminshakov/presalebot/internal/storage/purchases"
	"github.com/vadiminshakov/presalebot/internal/wallet"
)

// App is the composition root for one presale client instance.
type App struct {
	conf      config.Config
	reg       *registry.Registry
	wallet    *wallet.Wallet
	notify    purchase.Notifier
	broadcast *events.SnapshotBroadcaster
	journal   *purchases.WALStore
	l         *zap.Logger

	mu           sync.RWMutex
	chain        registry.Chain
	client       *ethclient.Client
	store        *store.Store
	synchronizer *syncsvc.Synchronizer
	orchestrator *purchase.Orchestrator
}

// New connects to the configured chain (or the registry default) and
// builds the full stack.
func New(conf config.Config, reg *registry.Registry, notify purchase.Notifier, l *zap.Logger) (*App, error) {
	chainID := conf.ChainID
	if chainID == 0 {
		chainID = reg.DefaultChainID()
	}

	w, err := wallet.FromEnv(chainID)
	if err != nil {
		return nil, errors.Wrap(err, "load wallet")
	}

	journal, err := purchases.NewWALStore(conf.JournalDir)
	if err != nil {
		return nil, errors.Wrap(err, "open purchase journal")
	}

	a := &App{
		conf:      conf,
		reg:       reg,
		wallet:    w,
		notify:    notify,
		broadcast: events.NewSnapshotBroadcaster(256),
		journal:   journal,
		l:         l,
	}
	if err := a.connect(chainID); err != nil {
		journal.Close()
		return nil, err
	}
	return a, nil
}

// connect builds a fresh store/gateway/synchronizer/orchestrator stack
// for the chain. The previous store is orphaned, so late publishes from
// old in-flight reads hit a snapshot nobody observes anymore.
func (a *App) connect(chainID uint64) error {
	chain, err := a.reg.Chain(chainID)
	if err != nil {
		return err
	}

	rpcURL := chain.RPCURL
	if a.conf.RPCURL != "" {
		rpcURL = a.conf.RPCURL
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return errors.Wrapf(err, "dial rpc %s", rpcURL)
	}

	gw := gateway.New(client, chain.PresaleAddress, a.wallet, a.l.With(zap.Uint64("chain", chainID)))
	st := store.New(chainID, a.broadcast)
	sync := syncsvc.New(chain, gw, st, a.l.With(zap.Uint64("chain", chainID)))
	orch := purchase.New(gw, a.wallet, sync, a.notify, a.journal, chainID, chain.SaleToken.Symbol, a.l.With(zap.Uint64("chain", chainID)))

	a.mu.Lock()
	old := a.client
	a.chain = chain
	a.client = client
	a.store = st
	a.synchronizer = sync
	a.orchestrator = orch
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// SwitchChain commits the client to a new chain: the wallet re-targets,
// the snapshot is rebuilt from scratch and synchronization restarts.
func (a *App) SwitchChain(ctx context.Context, chainID uint64) error {
	if !a.reg.Supported(chainID) {
		return errors.Errorf("unsupported chain id %d", chainID)
	}
	if a.Busy() {
		return errors.New("cannot switch chains while a purchase is in flight")
	}

	a.wallet.SwitchChain(chainID)
	if err := a.connect(chainID); err != nil {
		return err
	}

	a.l.Info("switched chain", zap.Uint64("chain", chainID))
	return a.Refresh(ctx)
}

// Refresh pulls initial data plus wallet state for the active chain.
func (a *App) Refresh(ctx context.Context) error {
	a.mu.RLock()
	sync := a.synchronizer
	a.mu.RUnlock()

	if err := sync.RefreshInitialData(ctx); err != nil {
		return err
	}
	addr := a.wallet.ConnectedAddress()
	sync.RefreshBalances(ctx, addr)
	sync.RefreshLockedBalance(ctx, addr)
	return nil
}

// Run refreshes once, then keeps the snapshot fresh on a ticker until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Refresh(ctx); err != nil {
		a.l.Warn("initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(a.conf.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Refresh(ctx); err != nil {
				a.l.Warn("periodic refresh failed", zap.Error(err))
			}
		}
	}
}

// Snapshot returns the current chain snapshot.
func (a *App) Snapshot() entity.ChainSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store.Snapshot()
}

// Chain returns the active chain configuration.
func (a *App) Chain() registry.Chain {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chain
}

// Wallet exposes the connected signer.
func (a *App) Wallet() *wallet.Wallet {
	return a.wallet
}

// Broadcast exposes the snapshot broadcaster for streaming consumers.
func (a *App) Broadcast() *events.SnapshotBroadcaster {
	return a.broadcast
}

// Journal exposes the purchase journal for streaming consumers.
func (a *App) Journal() *purchases.WALStore {
	return a.journal
}

// Busy reports whether a purchase or unlock sequence is in flight.
func (a *App) Busy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.orchestrator.Busy()
}

// BuyToken runs the purchase sequence on the active chain.
func (a *App) BuyToken(ctx context.Context, amount decimal.Decimal, payToken entity.Token) purchase.Result {
	a.mu.RLock()
	orch := a.orchestrator
	a.mu.RUnlock()
	return orch.BuyToken(ctx, amount, payToken)
}

// UnlockToken runs the unlock sequence on the active chain.
func (a *App) UnlockToken(ctx context.Context) {
	a.mu.RLock()
	orch := a.orchestrator
	a.mu.RUnlock()
	orch.UnlockToken(ctx)
}

// Close releases the RPC client and the journal.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		a.client.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.l.Warn("journal close failed", zap.Error(err))
		}
	}
}
