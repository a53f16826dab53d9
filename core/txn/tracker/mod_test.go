package tracker

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.canvass.io/canvass/chain"
	"go.canvass.io/canvass/chain/mem"
	"go.canvass.io/canvass/core"
	"go.canvass.io/canvass/core/txn"
	"go.canvass.io/canvass/internal/testing/fake"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTracker_Track(t *testing.T) {
	c := mem.NewChain()
	tracker := NewTracker()
	defer tracker.Close()

	events := make(chan txn.Event, 10)
	obs := core.ObserverFunc(func(event interface{}) {
		events <- event.(txn.Event)
	})
	tracker.Watch(&obs)

	pending := make(chan string, 1)
	mined := make(chan txn.ID, 1)

	creator := func(ctx context.Context) (chain.PendingTx, error) {
		return c.Polling().Vote(ctx, "0xa", []uint64{1}, []*big.Int{big.NewInt(1)})
	}

	id := tracker.Track(creator, "0xa", "Voting on 1 polls", txn.Callbacks{
		Pending: func(hash string) { pending <- hash },
		Mined:   func(id txn.ID) { mined <- id },
	})

	require.Equal(t, txn.StatusInitialized, (<-events).Transaction.Status)

	hash := <-pending
	require.Equal(t, txn.StatusPending, (<-events).Transaction.Status)

	tx, found := tracker.Get(id)
	require.True(t, found)
	require.Equal(t, hash, tx.Hash)
	require.Equal(t, "0xa", tx.Account)
	require.Equal(t, "Voting on 1 polls", tx.Message)

	c.Mine()

	require.Equal(t, id, <-mined)

	event := <-events
	require.Equal(t, txn.StatusMined, event.Transaction.Status)
	require.Equal(t, id, event.Transaction.ID)

	require.NoError(t, tracker.SetMessage(id, "Voted on 1 polls"))

	tx, _ = tracker.Get(id)
	require.Equal(t, "Voted on 1 polls", tx.Message)
	require.Equal(t, txn.StatusMined, tx.Status)

	tracker.Unwatch(&obs)
}

func TestTracker_CreatorFailed(t *testing.T) {
	tracker := NewTracker()
	defer tracker.Close()

	failed := make(chan error, 1)

	creator := func(ctx context.Context) (chain.PendingTx, error) {
		return nil, fake.GetError()
	}

	id := tracker.Track(creator, "0xa", "msg", txn.Callbacks{
		Error: func(id txn.ID, err error) { failed <- err },
	})

	err := <-failed
	require.EqualError(t, err, fake.Err("couldn't create transaction"))

	tx, found := tracker.Get(id)
	require.True(t, found)
	require.Equal(t, txn.StatusFailed, tx.Status)
	require.Equal(t, err, tx.Err)
}

func TestTracker_Close(t *testing.T) {
	c := mem.NewChain()
	tracker := NewTracker()

	var wg sync.WaitGroup
	wg.Add(1)

	var failure error

	creator := func(ctx context.Context) (chain.PendingTx, error) {
		return c.Polling().Vote(ctx, "0xa", []uint64{1}, []*big.Int{big.NewInt(1)})
	}

	tracker.Track(creator, "0xa", "msg", txn.Callbacks{
		Error: func(id txn.ID, err error) {
			failure = err
			wg.Done()
		},
	})

	// The transaction is never mined, closing cancels the wait.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, tracker.Close())

	wg.Wait()
	require.Error(t, failure)
	require.Contains(t, failure.Error(), "couldn't wait for transaction: transaction ")
}

func TestTracker_SetMessage(t *testing.T) {
	tracker := NewTracker(WithClock(time.Now))
	defer tracker.Close()

	err := tracker.SetMessage("unknown", "msg")
	require.EqualError(t, err, "transaction 'unknown' not found")

	_, found := tracker.Get("unknown")
	require.False(t, found)
}

func TestTracker_Log(t *testing.T) {
	logger, check := fake.CheckLog("transaction failed")

	tracker := NewTracker(WithLogger(logger))
	defer tracker.Close()

	done := make(chan struct{})

	tracker.Track(func(ctx context.Context) (chain.PendingTx, error) {
		return nil, fake.GetError()
	}, "0xa", "msg", txn.Callbacks{
		Error: func(txn.ID, error) { close(done) },
	})

	<-done
	check(t)
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, "pending", txn.StatusPending.String())
	require.Equal(t, "unknown", txn.Status(42).String())
}
