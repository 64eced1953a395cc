// Package purchase sequences the presale buy and unlock flows:
// allowance check, approval, fee read, submission, confirmation and the
// post-confirmation refreshes. Failures never escape to callers as
// errors; every run ends in a Result and a user-facing notification.
package purchase

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/gateway"
)

// State tracks where the orchestrator is in a run. Terminal states are
// recorded as the last outcome; the orchestrator itself returns to Idle
// as soon as a run finishes.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateConfirmed
	StateReverted
	StateSigningFailed
)

const signingFailedMsg = "Signing failed, please try again!"

// approvalAmount is the fixed unlimited allowance granted on first
// purchase with a token: 9999999999999999999999999999 whole tokens at
// 18 decimals. The deployed contract expects this exact convention.
var approvalAmount = func() *big.Int {
	v, ok := new(big.Int).SetString("9999999999999999999999999999", 10)
	if !ok {
		panic("bad approval constant")
	}
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}()

// Chain is the gateway surface the orchestrator drives.
type Chain interface {
	Allowance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Approve(ctx context.Context, token common.Address, amount *big.Int) (*types.Transaction, error)
	BuyFee(ctx context.Context) (*big.Int, error)
	UnlockFee(ctx context.Context) (*big.Int, error)
	BuyToken(ctx context.Context, token common.Address, amount, value *big.Int) (*types.Transaction, error)
	UnlockToken(ctx context.Context, value *big.Int) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Refresher re-syncs snapshot state after a confirmed transaction.
type Refresher interface {
	RefreshBalances(ctx context.Context, address *common.Address)
	RefreshLockedBalance(ctx context.Context, address *common.Address)
	RefreshTotalSold(ctx context.Context) error
}

// AddressProvider reports the connected account, or nil when read-only.
type AddressProvider interface {
	ConnectedAddress() *common.Address
}

// Notifier carries user-facing outcome messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Journal records confirmed purchases. Appends are best-effort.
type Journal interface {
	Append(receipt entity.PurchaseReceipt) error
}

// Result is what callers get back from BuyToken. No exception-style
// control flow: failures are Success=false, nothing more.
type Result struct {
	Success bool
	TxHash  *common.Hash
}

// Orchestrator runs at most one purchase or unlock sequence at a time.
type Orchestrator struct {
	mu          sync.Mutex
	state       State
	lastOutcome State

	chain      Chain
	signer     AddressProvider
	refresher  Refresher
	notify     Notifier
	journal    Journal
	chainID    uint64
	saleSymbol string
	l          *zap.Logger
}

// New creates an orchestrator. journal may be nil.
func New(chain Chain, signer AddressProvider, refresher Refresher, notify Notifier, journal Journal, chainID uint64, saleSymbol string, l *zap.Logger) *Orchestrator {
	return &Orchestrator{
		chain:      chain,
		signer:     signer,
		refresher:  refresher,
		notify:     notify,
		journal:    journal,
		chainID:    chainID,
		saleSymbol: saleSymbol,
		l:          l,
	}
}

// Busy reports whether a purchase or unlock sequence is in flight. It
// is the only externally observable progress indicator.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateSubmitting
}

// LastOutcome returns the terminal state of the most recent run.
func (o *Orchestrator) LastOutcome() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastOutcome
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return false
	}
	o.state = StateSubmitting
	return true
}

func (o *Orchestrator) finish(outcome State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastOutcome = outcome
	o.state = StateIdle
}

// classify turns a sequence failure into its terminal state and fires
// the matching notification. It is a total switch over the gateway's
// closed error kinds: reverts surface their reason verbatim, everything
// else collapses into one generic message.
func (o *Orchestrator) classify(err error) State {
	var ce *gateway.CallError
	if errors.As(err, &ce) && ce.Kind == gateway.KindRevert {
		o.l.Warn("contract reverted", zap.String("reason", ce.Reason))
		o.notify.Error(ce.Reason)
		return StateReverted
	}
	o.l.Warn("signing failed", zap.Error(err))
	o.notify.Error(signingFailedMsg)
	return StateSigningFailed
}

// ensureAllowance checks the presale contract's allowance for the buyer
// and, only when it is exactly zero, submits the unlimited approval and
// waits for its confirmation. A nonzero allowance of any size skips
// approval; there is no top-up for allowances smaller than the purchase.
func (o *Orchestrator) ensureAllowance(ctx context.Context, token common.Address, owner common.Address) error {
	allowance, err := o.chain.Allowance(ctx, token, owner)
	if err != nil {
		return err
	}
	if allowance.Sign() != 0 {
		return nil
	}

	tx, err := o.chain.Approve(ctx, token, approvalAmount)
	if err != nil {
		return err
	}
	if _, err := o.chain.WaitMined(ctx, tx); err != nil {
		return err
	}
	o.notify.Success("Spend approved")
	return nil
}

// BuyToken runs the whole purchase sequence for the given human-unit
// amount of the payment token. Preconditions (connected signer, amount
// > 0, not already busy) short-circuit with a failed Result and no
// transaction.
func (o *Orchestrator) BuyToken(ctx context.Context, amount decimal.Decimal, payToken entity.Token) Result {
	address := o.signer.ConnectedAddress()
	if address == nil || !amount.IsPositive() {
		return Result{}
	}
	if !o.begin() {
		o.l.Warn("purchase rejected: sequence already in flight")
		return Result{}
	}

	outcome := StateSigningFailed
	defer func() { o.finish(outcome) }()

	raw := entity.ToRaw(amount, payToken.Decimals)

	if !payToken.IsNative() {
		if err := o.ensureAllowance(ctx, *payToken.Address, *address); err != nil {
			outcome = o.classify(err)
			return Result{}
		}
	}

	// The fee field can change between blocks; read it right before
	// submission, after any approval wait, never from an earlier era.
	fee, err := o.chain.BuyFee(ctx)
	if err != nil {
		outcome = o.classify(err)
		return Result{}
	}

	var tx *types.Transaction
	if payToken.IsNative() {
		value := new(big.Int).Add(raw, fee)
		tx, err = o.chain.BuyToken(ctx, common.Address{}, raw, value)
	} else {
		tx, err = o.chain.BuyToken(ctx, *payToken.Address, raw, fee)
	}
	if err != nil {
		outcome = o.classify(err)
		return Result{}
	}
	hash := tx.Hash()

	if _, err := o.chain.WaitMined(ctx, tx); err != nil {
		outcome = o.classify(err)
		return Result{Success: false, TxHash: &hash}
	}

	o.afterConfirmed(address, entity.PurchaseReceipt{
		Kind:      "buy",
		ChainID:   o.chainID,
		Buyer:     address.Hex(),
		PaySymbol: payToken.Symbol,
		PayAmount: amount,
		TxHash:    hash.Hex(),
		Time:      time.Now().UTC(),
	}, true)

	o.notify.Success("You have successfully purchased $" + o.saleSymbol + " Tokens. Thank you!")
	outcome = StateConfirmed
	return Result{Success: true, TxHash: &hash}
}

// UnlockToken runs the single-step unlock sequence: read the current
// unlock fee, submit with it as value, wait for confirmation, refresh
// the locked balance. No allowance applies; no payment token moves.
func (o *Orchestrator) UnlockToken(ctx context.Context) {
	address := o.signer.ConnectedAddress()
	if address == nil {
		return
	}
	if !o.begin() {
		o.l.Warn("unlock rejected: sequence already in flight")
		return
	}

	outcome := StateSigningFailed
	defer func() { o.finish(outcome) }()

	fee, err := o.chain.UnlockFee(ctx)
	if err != nil {
		outcome = o.classify(err)
		return
	}

	tx, err := o.chain.UnlockToken(ctx, fee)
	if err != nil {
		outcome = o.classify(err)
		return
	}
	if _, err := o.chain.WaitMined(ctx, tx); err != nil {
		outcome = o.classify(err)
		return
	}

	o.afterConfirmed(address, entity.PurchaseReceipt{
		Kind:    "unlock",
		ChainID: o.chainID,
		Buyer:   address.Hex(),
		TxHash:  tx.Hash().Hex(),
		Time:    time.Now().UTC(),
	}, false)

	o.notify.Success("Tokens unlocked successfully")
	outcome = StateConfirmed
}

// afterConfirmed spawns the post-confirmation refreshes as background
// tasks. Their completion is not awaited and their failures are only
// logged; the caller already has its success result.
func (o *Orchestrator) afterConfirmed(address *common.Address, receipt entity.PurchaseReceipt, full bool) {
	if o.journal != nil {
		if err := o.journal.Append(receipt); err != nil {
			o.l.Warn("journal append failed", zap.Error(err))
		}
	}

	addr := *address
	go func() {
		ctx := context.Background()
		if full {
			o.refresher.RefreshBalances(ctx, &addr)
		}
		o.refresher.RefreshLockedBalance(ctx, &addr)
		if full {
			if err := o.refresher.RefreshTotalSold(ctx); err != nil {
				o.l.Warn("total sold refresh failed", zap.Error(err))
			}
		}
	}()
}
