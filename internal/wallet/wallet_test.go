package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// well-known test vector key, never funded
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewDerivesAddress(t *testing.T) {
	w, err := New(testKey, 56)
	require.NoError(t, err)
	require.True(t, w.Connected())
	require.Equal(t, testAddr, w.Address().Hex())
	require.NotNil(t, w.ConnectedAddress())
	require.Equal(t, testAddr, w.ConnectedAddress().Hex())
}

func TestNewAcceptsHexPrefix(t *testing.T) {
	w, err := New("0x"+testKey, 56)
	require.NoError(t, err)
	require.Equal(t, testAddr, w.Address().Hex())
}

func TestNewRejectsGarbage(t *testing.T) {
	_, err := New("not-a-key", 56)
	require.Error(t, err)
}

func TestFromEnvReadOnly(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	w, err := FromEnv(56)
	require.NoError(t, err)
	require.False(t, w.Connected())
	require.Nil(t, w.ConnectedAddress())

	_, err = w.TransactOpts(context.Background())
	require.Error(t, err, "read-only wallet cannot sign")
}

func TestSwitchChain(t *testing.T) {
	w, err := New(testKey, 56)
	require.NoError(t, err)
	require.Equal(t, uint64(56), w.ChainID())

	w.SwitchChain(5)
	require.Equal(t, uint64(5), w.ChainID())

	opts, err := w.TransactOpts(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAddr, opts.From.Hex())
}
