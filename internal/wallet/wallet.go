// Package wallet holds the locally connected signer. A wallet without a
// key is valid: syncs still run, writes fail their preconditions.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// EnvPrivateKey is the env var holding the buyer's hex private key.
const EnvPrivateKey = "PRESALE_PRIVATE_KEY"

// Wallet wraps a private key committed to one chain ID.
type Wallet struct {
	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// FromEnv loads the key from .env/environment. A missing key yields a
// read-only wallet, not an error.
func FromEnv(chainID uint64) (*Wallet, error) {
	_ = godotenv.Load()
	hexKey := strings.TrimSpace(os.Getenv(EnvPrivateKey))
	if hexKey == "" {
		return &Wallet{chainID: new(big.Int).SetUint64(chainID)}, nil
	}
	return New(hexKey, chainID)
}

// New builds a wallet from a hex private key.
func New(hexKey string, chainID uint64) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(chainID),
	}, nil
}

// Connected reports whether a signing key is present.
func (w *Wallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.key != nil
}

// Address returns the signer address; zero without a key.
func (w *Wallet) Address() common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

// ConnectedAddress returns the signer address, or nil when read-only.
func (w *Wallet) ConnectedAddress() *common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil
	}
	addr := w.address
	return &addr
}

// ChainID returns the chain the wallet currently signs for.
func (w *Wallet) ChainID() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID.Uint64()
}

// SwitchChain rebinds the wallet to a new chain ID. Callers are
// responsible for rebuilding gateways and resetting snapshots.
func (w *Wallet) SwitchChain(chainID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = new(big.Int).SetUint64(chainID)
}

// TransactOpts builds signed transaction options for the active chain.
func (w *Wallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.key == nil {
		return nil, errors.New("wallet has no signing key")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "build transactor")
	}
	opts.Context = ctx
	return opts, nil
}
