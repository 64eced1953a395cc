// Package gateway is the only component that talks to the chain. It
// exposes typed reads and writes against the presale contract and the
// whitelisted ERC-20 tokens, returning raw token-decimals-scaled integers.
// It never retries; retry policy belongs to callers.
package gateway

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/presalebot/internal/entity"
)

// TxSigner supplies the connected account and signed transaction options.
type TxSigner interface {
	Address() common.Address
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Gateway binds an ethclient to one presale deployment.
type Gateway struct {
	client  *ethclient.Client
	presale common.Address
	bound   *bind.BoundContract
	signer  TxSigner
	l       *zap.Logger
}

// New dials nothing; the client is already connected by the caller.
func New(client *ethclient.Client, presale common.Address, signer TxSigner, l *zap.Logger) *Gateway {
	return &Gateway{
		client:  client,
		presale: presale,
		bound:   bind.NewBoundContract(presale, presaleABI, client, client, client),
		signer:  signer,
		l:       l,
	}
}

func (g *Gateway) callView(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, &CallError{Kind: KindTransport, Err: errors.Wrapf(err, "pack %s", method)}
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, Classify(err)
	}
	vals, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, &CallError{Kind: KindTransport, Err: errors.Wrapf(err, "unpack %s", method)}
	}
	return vals, nil
}

func bigOut(vals []any, method string) (*big.Int, error) {
	if len(vals) == 0 {
		return nil, &CallError{Kind: KindTransport, Err: errors.Errorf("%s returned no values", method)}
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, &CallError{Kind: KindTransport, Err: errors.Errorf("%s returned unexpected type %T", method, vals[0])}
	}
	return v, nil
}

// SaleStatus reports whether the sale is currently open.
func (g *Gateway) SaleStatus(ctx context.Context) (bool, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "saleStatus")
	if err != nil {
		return false, err
	}
	status, ok := vals[0].(bool)
	if !ok {
		return false, &CallError{Kind: KindTransport, Err: errors.Errorf("saleStatus returned unexpected type %T", vals[0])}
	}
	return status, nil
}

// TotalTokensSold returns the sold amount in raw sale-token units.
func (g *Gateway) TotalTokensSold(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "totalTokensSold")
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "totalTokensSold")
}

// TotalTokensForSale returns the full allocation in raw sale-token units.
func (g *Gateway) TotalTokensForSale(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "totalTokensforSale")
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "totalTokensforSale")
}

// TokenPrice returns the per-unit rate for an ERC-20 payment token.
func (g *Gateway) TokenPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "tokenPrices", token)
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "tokenPrices")
}

// NativeRate returns the rate for purchases paid in the native coin.
func (g *Gateway) NativeRate(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "rate")
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "rate")
}

// BuyerAmount returns the buyer's locked allocation in raw sale-token units.
func (g *Gateway) BuyerAmount(ctx context.Context, buyer common.Address) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "buyersAmount", buyer)
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "buyersAmount")
}

// BuyFee reads the surcharge attached to buyToken calls. The contract can
// change it between blocks, so callers must read it right before submitting.
func (g *Gateway) BuyFee(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "uniswapTimestamp2")
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "uniswapTimestamp2")
}

// UnlockFee reads the surcharge attached to unlockToken calls.
func (g *Gateway) UnlockFee(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, g.presale, presaleABI, "uniswapTimestamp")
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "uniswapTimestamp")
}

// Allowance returns how much the presale contract may spend of the
// owner's tokens.
func (g *Gateway) Allowance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	vals, err := g.callView(ctx, token, erc20ABI, "allowance", owner, g.presale)
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "allowance")
}

// Balance reads the holder's balance of the given token, routing the
// native-coin sentinel (nil address) to eth_getBalance instead of an
// ERC-20 call.
func (g *Gateway) Balance(ctx context.Context, token entity.Token, holder common.Address) (*big.Int, error) {
	if token.IsNative() {
		bal, err := g.client.BalanceAt(ctx, holder, nil)
		if err != nil {
			return nil, Classify(err)
		}
		return bal, nil
	}
	vals, err := g.callView(ctx, *token.Address, erc20ABI, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return bigOut(vals, "balanceOf")
}

func (g *Gateway) transactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if g.signer == nil {
		return nil, &CallError{Kind: KindTransport, Err: errors.New("no signer connected")}
	}
	opts, err := g.signer.TransactOpts(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	opts.Value = value
	return opts, nil
}

// Approve submits an ERC-20 approval of the presale contract as spender.
func (g *Gateway) Approve(ctx context.Context, token common.Address, amount *big.Int) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx, nil)
	if err != nil {
		return nil, err
	}
	bound := bind.NewBoundContract(token, erc20ABI, g.client, g.client, g.client)
	tx, err := bound.Transact(opts, "approve", g.presale, amount)
	if err != nil {
		return nil, Classify(err)
	}
	g.l.Info("approval submitted",
		zap.String("token", token.Hex()),
		zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// BuyToken submits the purchase. For ERC-20 payments value carries only
// the fee and token is the payment token address; for native payments
// value carries amount+fee and token is the zero address.
func (g *Gateway) BuyToken(ctx context.Context, token common.Address, amount, value *big.Int) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx, value)
	if err != nil {
		return nil, err
	}
	tx, err := g.bound.Transact(opts, "buyToken", token, amount)
	if err != nil {
		return nil, Classify(err)
	}
	g.l.Info("purchase submitted",
		zap.String("token", token.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// UnlockToken submits the unlock call with the given fee as value.
func (g *Gateway) UnlockToken(ctx context.Context, value *big.Int) (*types.Transaction, error) {
	opts, err := g.transactOpts(ctx, value)
	if err != nil {
		return nil, err
	}
	tx, err := g.bound.Transact(opts, "unlockToken")
	if err != nil {
		return nil, Classify(err)
	}
	g.l.Info("unlock submitted", zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// WaitMined blocks until the transaction is included in a block. An
// on-chain failure surfaces as a revert-kind error.
func (g *Gateway) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return nil, Classify(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &CallError{Kind: KindRevert, Reason: "transaction reverted", Err: errors.Errorf("tx %s reverted", tx.Hash().Hex())}
	}
	return receipt, nil
}
