package mem

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.canvass.io/canvass/chain"
	"golang.org/x/xerrors"
)

func TestChain_Vote(t *testing.T) {
	c := NewChain(WithNetwork("testnet"))
	require.Equal(t, "testnet", c.Network())

	tx, err := c.Polling().Vote(context.Background(), "0xAB",
		[]uint64{1, 2}, []*big.Int{big.NewInt(3), big.NewInt(4)})
	require.NoError(t, err)
	require.Len(t, tx.Hash(), 66)

	receipt, err := c.Transaction(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, uint64(0), receipt.Confirmations)

	_, found := c.VoteOf("0xab", 1)
	require.False(t, found)

	require.Equal(t, uint64(1), c.Mine())

	receipt, err = tx.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.Block)
	require.Equal(t, uint64(1), receipt.Confirmations)

	c.Mine()

	receipt, err = c.Transaction(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, uint64(2), receipt.Confirmations)

	option, found := c.VoteOf("0xAB", 2)
	require.True(t, found)
	require.Equal(t, big.NewInt(4), option)
}

func TestChain_Automine(t *testing.T) {
	c := NewChain(WithAutomine())

	tx, err := c.Polling().Vote(context.Background(), "0xa", []uint64{1}, []*big.Int{big.NewInt(1)})
	require.NoError(t, err)

	receipt, err := tx.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.Confirmations)
	require.Equal(t, uint64(1), c.Height())
}

func TestChain_Transaction(t *testing.T) {
	c := NewChain()

	_, err := c.Transaction("0xdeadbeef")
	require.True(t, xerrors.Is(err, chain.ErrNotFound))
}

func TestChain_BadVote(t *testing.T) {
	c := NewChain()

	_, err := c.Polling().Vote(context.Background(), "0xa", nil, nil)
	require.EqualError(t, err, "no poll to vote on")

	_, err = c.Polling().Vote(context.Background(), "0xa", []uint64{1}, nil)
	require.EqualError(t, err, "mismatching lengths: 1 polls, 0 options")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Polling().Vote(ctx, "0xa", []uint64{1}, []*big.Int{big.NewInt(1)})
	require.EqualError(t, err, "couldn't send transaction: context canceled")
}

func TestChain_Wait(t *testing.T) {
	c := NewChain()

	tx, err := c.Polling().Vote(context.Background(), "0xa", []uint64{1}, []*big.Int{big.NewInt(1)})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = tx.Wait(ctx)
	require.EqualError(t, err, "transaction "+tx.Hash()+" not mined: context deadline exceeded")
}

func TestChain_Delegate(t *testing.T) {
	c := NewChain(WithAutomine())

	addr := c.DeployDelegate("0xOwner")

	found, ok := c.DelegateOf("0xowner")
	require.True(t, ok)
	require.Equal(t, addr, found)

	_, ok = c.DelegateOf("0xother")
	require.False(t, ok)

	delegate, err := c.VoteDelegate(addr)
	require.NoError(t, err)
	require.Equal(t, addr, delegate.Address())

	_, err = delegate.Vote(context.Background(), "0xother", []uint64{1}, []*big.Int{big.NewInt(2)})
	require.EqualError(t, err, "'0xother' is not the owner of delegate "+addr)

	_, err = delegate.Vote(context.Background(), "0xowner", []uint64{1}, []*big.Int{big.NewInt(2)})
	require.NoError(t, err)

	option, ok := c.VoteOf(addr, 1)
	require.True(t, ok)
	require.Equal(t, big.NewInt(2), option)

	_, ok = c.VoteOf("0xowner", 1)
	require.False(t, ok)

	_, err = c.VoteDelegate("0xunknown")
	require.EqualError(t, err, "no delegate contract at 0xunknown")

	require.Equal(t, PollingAddress, c.Polling().Address())
}
