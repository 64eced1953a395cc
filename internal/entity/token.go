package entity

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token describes a token known to the registry.
// Address == nil means the chain's native coin, never an ERC-20 call target.
type Token struct {
	Address  *common.Address
	Symbol   string
	Name     string
	Image    string
	Decimals int32
}

// IsNative reports whether the token is the chain's native coin.
func (t Token) IsNative() bool {
	return t.Address == nil
}
