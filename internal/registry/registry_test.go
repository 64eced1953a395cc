package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	require.Equal(t, uint64(56), r.DefaultChainID())
	require.True(t, r.Supported(56))
	require.True(t, r.Supported(5))
	require.False(t, r.Supported(1))

	bsc, err := r.Chain(56)
	require.NoError(t, err)
	require.Equal(t, "BLCG", bsc.SaleToken.Symbol)
	require.Len(t, bsc.PaymentTokens, 4)
	require.True(t, bsc.PaymentTokens[0].IsNative(), "native coin is listed first")
	require.Equal(t, "USDT", bsc.DisplaySymbol)
}

func TestUnknownChain(t *testing.T) {
	r := Default()
	_, err := r.Chain(1)
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New()
	require.Error(t, err, "empty registry is rejected")

	bsc, err := Default().Chain(56)
	require.NoError(t, err)

	_, err = New(bsc, bsc)
	require.Error(t, err, "duplicate chain ids are rejected")

	noTokens := bsc
	noTokens.ChainID = 99
	noTokens.PaymentTokens = nil
	_, err = New(noTokens)
	require.Error(t, err, "a chain without payment tokens is rejected")
}

func TestWithDefault(t *testing.T) {
	r := Default()
	r, err := r.WithDefault(5)
	require.NoError(t, err)
	require.Equal(t, uint64(5), r.DefaultChainID())

	_, err = r.WithDefault(1)
	require.Error(t, err)
}
