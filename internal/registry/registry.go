package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/presalebot/internal/entity"
)

// Chain holds the static presale configuration for one EVM chain.
type Chain struct {
	ChainID         uint64
	Name            string
	RPCURL          string
	PresaleAddress  common.Address
	SaleToken       entity.Token
	PaymentTokens   []entity.Token
	DisplaySymbol   string
	ExtraSoldAmount decimal.Decimal
	SaleStart       int64
	SaleEnd         int64
}

// Registry maps chain IDs to their presale configuration.
type Registry struct {
	chains         map[uint64]Chain
	defaultChainID uint64
}

// New builds a registry from the given chains. The first chain becomes
// the default unless overridden with WithDefault.
func New(chains ...Chain) (*Registry, error) {
	if len(chains) == 0 {
		return nil, errors.New("registry requires at least one chain")
	}
	m := make(map[uint64]Chain, len(chains))
	for _, c := range chains {
		if _, ok := m[c.ChainID]; ok {
			return nil, errors.Errorf("duplicate chain id %d", c.ChainID)
		}
		if len(c.PaymentTokens) == 0 {
			return nil, errors.Errorf("chain %d has no payment tokens", c.ChainID)
		}
		m[c.ChainID] = c
	}
	return &Registry{chains: m, defaultChainID: chains[0].ChainID}, nil
}

// WithDefault sets the default chain, which must already be registered.
func (r *Registry) WithDefault(chainID uint64) (*Registry, error) {
	if _, ok := r.chains[chainID]; !ok {
		return nil, errors.Errorf("unknown default chain id %d", chainID)
	}
	r.defaultChainID = chainID
	return r, nil
}

// Chain returns the configuration for the given chain ID.
func (r *Registry) Chain(chainID uint64) (Chain, error) {
	c, ok := r.chains[chainID]
	if !ok {
		return Chain{}, errors.Errorf("unsupported chain id %d", chainID)
	}
	return c, nil
}

// DefaultChainID returns the chain used before any explicit switch.
func (r *Registry) DefaultChainID() uint64 {
	return r.defaultChainID
}

// Supported reports whether the chain ID is known to the registry.
func (r *Registry) Supported(chainID uint64) bool {
	_, ok := r.chains[chainID]
	return ok
}

func addr(hex string) *common.Address {
	a := common.HexToAddress(hex)
	return &a
}

// Default returns the built-in chain tables. They mirror the deployed
// presale: BSC mainnet plus the Goerli test deployment.
func Default() *Registry {
	bsc := Chain{
		ChainID:        56,
		Name:           "BNB Smart Chain",
		RPCURL:         "https://bsc-dataseed.binance.org",
		PresaleAddress: common.HexToAddress("0x2e3b6733A978Fe63eFdE637fD6dc1392108ACE9c"),
		SaleToken: entity.Token{
			Address:  addr("0x17Da6b0AdDa41A24f2B31c65AFd3037f8993f57b"),
			Symbol:   "BLCG",
			Name:     "Billion Local Coin Gold",
			Image:    "/img/tokens/BLCG.png",
			Decimals: 18,
		},
		PaymentTokens: []entity.Token{
			{Address: nil, Symbol: "BNB", Name: "Binance Smart Chain", Image: "/img/tokens/bnb.webp", Decimals: 18},
			{Address: addr("0x55d398326f99059fF775485246999027B3197955"), Symbol: "USDT", Name: "Tether USD", Image: "/img/tokens/busdt_32.webp", Decimals: 18},
			{Address: addr("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"), Symbol: "BUSD", Name: "BUSD", Image: "/img/tokens/busd.webp", Decimals: 18},
			{Address: addr("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"), Symbol: "USDC", Name: "USDC", Image: "/img/tokens/usdc.webp", Decimals: 18},
		},
		DisplaySymbol:   "USDT",
		ExtraSoldAmount: decimal.NewFromInt(105_126),
		SaleStart:       1686182400,
		SaleEnd:         1690848000,
	}

	goerli := Chain{
		ChainID:        5,
		Name:           "Goerli",
		RPCURL:         "https://rpc.ankr.com/eth_goerli",
		PresaleAddress: common.HexToAddress("0xAdD443da9e623a2436abCF315efe87a3f1557A15"),
		SaleToken: entity.Token{
			Address:  addr("0xc9733C0D52cB3BC298DEb25c2753fFa51f9A1E78"),
			Symbol:   "$FUNMB",
			Name:     "$FUNMB",
			Image:    "/img/tokens/$FUNMB_Icon.svg",
			Decimals: 18,
		},
		PaymentTokens: []entity.Token{
			{Address: nil, Symbol: "ETH", Name: "Ethereum", Image: "/img/tokens/eth.svg", Decimals: 18},
		},
		DisplaySymbol: "USDT",
		SaleStart:     1686182400,
		SaleEnd:       1690848000,
	}

	r, _ := New(bsc, goerli)
	return r
}
