package purchase

import (
	"context"
	"math/big"
	standardsync "sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/presalebot/internal/entity"
	"github.com/vadiminshakov/presalebot/internal/gateway"
)

var (
	buyerAddr   = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	usdtAddr    = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	usdtToken   = entity.Token{Address: &usdtAddr, Symbol: "USDT", Decimals: 18}
	nativeToken = entity.Token{Address: nil, Symbol: "BNB", Decimals: 18}
)

func newTx(nonce uint64) *types.Transaction {
	return types.NewTx(&types.LegacyTx{Nonce: nonce, To: &usdtAddr})
}

// stubChain records the exact call sequence the orchestrator makes.
type stubChain struct {
	mu    standardsync.Mutex
	calls []string

	allowance    *big.Int
	allowanceErr error

	feeBeforeApproval *big.Int
	feeAfterApproval  *big.Int
	approvalConfirmed bool

	unlockFee *big.Int

	approveErr error
	buyErr     error
	waitErr    error

	approveAmount  *big.Int
	submittedToken common.Address
	submittedRaw   *big.Int
	submittedValue *big.Int

	nonce   uint64
	txKinds map[common.Hash]string

	waitGate chan struct{} // when set, WaitMined for the buy blocks on it
}

func newStubChain() *stubChain {
	return &stubChain{
		allowance:         big.NewInt(0),
		feeBeforeApproval: big.NewInt(111),
		feeAfterApproval:  big.NewInt(222),
		unlockFee:         big.NewInt(333),
		txKinds:           make(map[common.Hash]string),
	}
}

func (c *stubChain) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *stubChain) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	c.record("allowance")
	return c.allowance, c.allowanceErr
}

func (c *stubChain) Approve(_ context.Context, _ common.Address, amount *big.Int) (*types.Transaction, error) {
	c.record("approve")
	if c.approveErr != nil {
		return nil, c.approveErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approveAmount = amount
	c.nonce++
	tx := newTx(c.nonce)
	c.txKinds[tx.Hash()] = "approve"
	return tx, nil
}

// BuyFee returns a different value once the approval is confirmed, so
// tests can prove the orchestrator reads the fee fresh instead of
// reusing a pre-approval value.
func (c *stubChain) BuyFee(context.Context) (*big.Int, error) {
	c.record("fee")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approvalConfirmed {
		return c.feeAfterApproval, nil
	}
	return c.feeBeforeApproval, nil
}

func (c *stubChain) UnlockFee(context.Context) (*big.Int, error) {
	c.record("unlockfee")
	return c.unlockFee, nil
}

func (c *stubChain) BuyToken(_ context.Context, token common.Address, amount, value *big.Int) (*types.Transaction, error) {
	c.record("buy")
	if c.buyErr != nil {
		return nil, c.buyErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submittedToken = token
	c.submittedRaw = amount
	c.submittedValue = value
	c.nonce++
	tx := newTx(c.nonce)
	c.txKinds[tx.Hash()] = "buy"
	return tx, nil
}

func (c *stubChain) UnlockToken(_ context.Context, value *big.Int) (*types.Transaction, error) {
	c.record("unlock")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submittedValue = value
	c.nonce++
	tx := newTx(c.nonce)
	c.txKinds[tx.Hash()] = "unlock"
	return tx, nil
}

func (c *stubChain) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	c.mu.Lock()
	kind := c.txKinds[tx.Hash()]
	gate := c.waitGate
	c.mu.Unlock()

	c.record("wait:" + kind)
	if kind == "buy" && gate != nil {
		<-gate
	}
	if c.waitErr != nil && kind != "approve" {
		return nil, c.waitErr
	}
	if kind == "approve" {
		c.mu.Lock()
		c.approvalConfirmed = true
		c.mu.Unlock()
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

type stubRefresher struct {
	mu        standardsync.Mutex
	balances  int
	locked    int
	totalSold int
}

func (r *stubRefresher) RefreshBalances(context.Context, *common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances++
}
func (r *stubRefresher) RefreshLockedBalance(context.Context, *common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked++
}
func (r *stubRefresher) RefreshTotalSold(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalSold++
	return nil
}

func (r *stubRefresher) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances, r.locked, r.totalSold
}

type stubSigner struct {
	addr *common.Address
}

func (s stubSigner) ConnectedAddress() *common.Address { return s.addr }

type stubNotifier struct {
	mu        standardsync.Mutex
	successes []string
	errs      []string
}

func (n *stubNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}
func (n *stubNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, msg)
}

type stubJournal struct {
	mu       standardsync.Mutex
	receipts []entity.PurchaseReceipt
}

func (j *stubJournal) Append(r entity.PurchaseReceipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.receipts = append(j.receipts, r)
	return nil
}

func newTestOrchestrator(chain *stubChain) (*Orchestrator, *stubRefresher, *stubNotifier, *stubJournal) {
	refresher := &stubRefresher{}
	notifier := &stubNotifier{}
	journal := &stubJournal{}
	o := New(chain, stubSigner{addr: &buyerAddr}, refresher, notifier, journal, 56, "BLCG", zap.NewNop())
	return o, refresher, notifier, journal
}

func TestBuyTokenApprovesWhenAllowanceIsZero(t *testing.T) {
	chain := newStubChain()
	o, refresher, _, journal := newTestOrchestrator(chain)

	result := o.BuyToken(context.Background(), decimal.NewFromInt(100), usdtToken)
	require.True(t, result.Success)
	require.NotNil(t, result.TxHash)

	// approval must be confirmed before the fee read and the purchase
	require.Equal(t, []string{"allowance", "approve", "wait:approve", "fee", "buy", "wait:buy"}, chain.calls)

	// the fee submitted with the purchase is the post-approval value
	require.Equal(t, "222", chain.submittedValue.String())
	require.Equal(t, usdtAddr, chain.submittedToken)
	require.Equal(t, decimal.NewFromInt(100).Shift(18).BigInt().String(), chain.submittedRaw.String())

	// unlimited approval constant
	require.Equal(t, approvalAmount.String(), chain.approveAmount.String())

	require.Equal(t, StateConfirmed, o.LastOutcome())
	require.False(t, o.Busy())

	require.Eventually(t, func() bool {
		b, l, s := refresher.counts()
		return b == 1 && l == 1 && s == 1
	}, time.Second, 10*time.Millisecond, "post-purchase refreshes must fire")

	require.Len(t, journal.receipts, 1)
	require.Equal(t, "buy", journal.receipts[0].Kind)
}

func TestBuyTokenSkipsApprovalWhenAllowanceNonzero(t *testing.T) {
	chain := newStubChain()
	// even an allowance smaller than the purchase skips approval
	chain.allowance = big.NewInt(1)
	chain.approvalConfirmed = true // fee is already at its current value
	o, _, _, _ := newTestOrchestrator(chain)

	result := o.BuyToken(context.Background(), decimal.NewFromInt(100), usdtToken)
	require.True(t, result.Success)
	require.Equal(t, []string{"allowance", "fee", "buy", "wait:buy"}, chain.calls)
}

func TestBuyTokenNativePath(t *testing.T) {
	chain := newStubChain()
	chain.approvalConfirmed = true
	o, _, _, _ := newTestOrchestrator(chain)

	result := o.BuyToken(context.Background(), decimal.NewFromInt(1), nativeToken)
	require.True(t, result.Success)

	// no allowance step for the native coin
	require.Equal(t, []string{"fee", "buy", "wait:buy"}, chain.calls)

	// value is amount scaled to 18 decimals plus the fee, token arg is
	// the zero sentinel
	wantValue := new(big.Int).Add(decimal.NewFromInt(1).Shift(18).BigInt(), big.NewInt(222))
	require.Equal(t, wantValue.String(), chain.submittedValue.String())
	require.Equal(t, common.Address{}, chain.submittedToken)
	require.Equal(t, decimal.NewFromInt(1).Shift(18).BigInt().String(), chain.submittedRaw.String())
}

func TestBuyTokenRevertSurfacesReason(t *testing.T) {
	chain := newStubChain()
	chain.buyErr = gateway.Classify(errors.New("execution reverted: Sale not active"))
	o, _, notifier, _ := newTestOrchestrator(chain)

	result := o.BuyToken(context.Background(), decimal.NewFromInt(1), nativeToken)
	require.False(t, result.Success)
	require.Nil(t, result.TxHash)
	require.Equal(t, []string{"Sale not active"}, notifier.errs)
	require.Equal(t, StateReverted, o.LastOutcome())
	require.False(t, o.Busy())
}

func TestBuyTokenTransportFailureIsGeneric(t *testing.T) {
	chain := newStubChain()
	chain.buyErr = gateway.Classify(errors.New("user rejected transaction"))
	o, _, notifier, _ := newTestOrchestrator(chain)

	result := o.BuyToken(context.Background(), decimal.NewFromInt(1), nativeToken)
	require.False(t, result.Success)
	require.Equal(t, []string{"Signing failed, please try again!"}, notifier.errs)
	require.Equal(t, StateSigningFailed, o.LastOutcome())
}

func TestBuyTokenPreconditions(t *testing.T) {
	t.Run("no connected signer", func(t *testing.T) {
		chain := newStubChain()
		o := New(chain, stubSigner{addr: nil}, &stubRefresher{}, &stubNotifier{}, nil, 56, "BLCG", zap.NewNop())

		result := o.BuyToken(context.Background(), decimal.NewFromInt(1), usdtToken)
		require.False(t, result.Success)
		require.Empty(t, chain.calls, "no transaction may be attempted")
	})

	t.Run("zero amount", func(t *testing.T) {
		chain := newStubChain()
		o, _, _, _ := newTestOrchestrator(chain)

		result := o.BuyToken(context.Background(), decimal.Zero, usdtToken)
		require.False(t, result.Success)
		require.Empty(t, chain.calls)
	})
}

func TestConcurrentPurchaseRejected(t *testing.T) {
	chain := newStubChain()
	chain.approvalConfirmed = true
	chain.waitGate = make(chan struct{})
	o, _, _, _ := newTestOrchestrator(chain)

	done := make(chan Result, 1)
	go func() {
		done <- o.BuyToken(context.Background(), decimal.NewFromInt(1), nativeToken)
	}()

	require.Eventually(t, o.Busy, time.Second, 5*time.Millisecond)

	second := o.BuyToken(context.Background(), decimal.NewFromInt(1), nativeToken)
	require.False(t, second.Success, "second invocation while busy must be rejected")

	close(chain.waitGate)
	first := <-done
	require.True(t, first.Success)
	require.False(t, o.Busy())
}

func TestUnlockToken(t *testing.T) {
	chain := newStubChain()
	o, refresher, notifier, journal := newTestOrchestrator(chain)

	o.UnlockToken(context.Background())

	require.Equal(t, []string{"unlockfee", "unlock", "wait:unlock"}, chain.calls)
	require.Equal(t, "333", chain.submittedValue.String(), "unlock sends the fresh fee as value")
	require.Equal(t, StateConfirmed, o.LastOutcome())
	require.Equal(t, []string{"Tokens unlocked successfully"}, notifier.successes)

	require.Eventually(t, func() bool {
		b, l, s := refresher.counts()
		return b == 0 && l == 1 && s == 0
	}, time.Second, 10*time.Millisecond, "unlock refreshes only the locked balance")

	require.Len(t, journal.receipts, 1)
	require.Equal(t, "unlock", journal.receipts[0].Kind)
}

func TestUnlockTokenNoSigner(t *testing.T) {
	chain := newStubChain()
	o := New(chain, stubSigner{addr: nil}, &stubRefresher{}, &stubNotifier{}, nil, 56, "BLCG", zap.NewNop())

	o.UnlockToken(context.Background())
	require.Empty(t, chain.calls)
}
