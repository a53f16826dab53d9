// Package tracker implements an in-memory transaction tracker.
//
// Each tracked transaction runs in its own goroutine that creates the
// transaction, then waits for it to be mined. The tracker keeps the state of
// every transaction it has seen so that it can be looked up by identifier.
//
// Documentation Last Review: 24.09.2026
//
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	canvass "go.canvass.io/canvass"
	"go.canvass.io/canvass/core"
	"go.canvass.io/canvass/core/txn"
	"golang.org/x/xerrors"
)

// defines prometheus metrics
var (
	promTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canvass_tracker_transactions_total",
		Help: "total number of tracked transactions per status",
	}, []string{"status"})

	promInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "canvass_tracker_transactions_inflight",
		Help: "number of transactions not yet mined or failed",
	})
)

func init() {
	canvass.PromCollectors = append(canvass.PromCollectors, promTxs, promInflight)
}

// Option is the type of option to create a tracker.
type Option func(*Tracker)

// WithClock is an option to set the clock of the tracker.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithLogger is an option to set the logger of the tracker.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// Tracker is an in-memory transaction tracker.
//
// - implements txn.Tracker
type Tracker struct {
	sync.Mutex

	logger  zerolog.Logger
	clock   func() time.Time
	txs     map[txn.ID]txn.Transaction
	watcher *core.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTracker creates a new empty tracker.
func NewTracker(opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())

	t := &Tracker{
		logger:  canvass.Logger.With().Str("component", "tracker").Logger(),
		clock:   time.Now,
		txs:     make(map[txn.ID]txn.Transaction),
		watcher: core.NewWatcher(),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Track implements txn.Tracker. It registers the transaction and runs the
// creator in the background. The callbacks are called from that goroutine.
func (t *Tracker) Track(creator txn.Creator, account, message string,
	callbacks txn.Callbacks) txn.ID {

	id := txn.ID(xid.New().String())

	tx := txn.Transaction{
		ID:        id,
		Account:   account,
		Message:   message,
		Status:    txn.StatusInitialized,
		CreatedAt: t.clock(),
	}

	t.Lock()
	t.txs[id] = tx
	t.wg.Add(1)
	t.Unlock()

	promTxs.WithLabelValues(txn.StatusInitialized.String()).Inc()
	promInflight.Inc()

	t.watcher.Notify(txn.Event{Transaction: tx})

	go t.run(id, creator, callbacks)

	return id
}

func (t *Tracker) run(id txn.ID, creator txn.Creator, callbacks txn.Callbacks) {
	defer t.wg.Done()
	defer promInflight.Dec()

	pending, err := creator(t.ctx)
	if err != nil {
		t.fail(id, xerrors.Errorf("couldn't create transaction: %v", err), callbacks)
		return
	}

	hash := pending.Hash()

	t.update(id, func(tx *txn.Transaction) {
		tx.Status = txn.StatusPending
		tx.Hash = hash
	})

	if callbacks.Pending != nil {
		callbacks.Pending(hash)
	}

	receipt, err := pending.Wait(t.ctx)
	if err != nil {
		t.fail(id, xerrors.Errorf("couldn't wait for transaction: %v", err), callbacks)
		return
	}

	t.logger.Info().
		Str("id", string(id)).
		Str("hash", hash).
		Uint64("block", receipt.Block).
		Msg("transaction mined")

	t.update(id, func(tx *txn.Transaction) {
		tx.Status = txn.StatusMined
	})

	if callbacks.Mined != nil {
		callbacks.Mined(id)
	}
}

func (t *Tracker) fail(id txn.ID, err error, callbacks txn.Callbacks) {
	t.logger.Warn().Err(err).Str("id", string(id)).Msg("transaction failed")

	t.update(id, func(tx *txn.Transaction) {
		tx.Status = txn.StatusFailed
		tx.Err = err
	})

	if callbacks.Error != nil {
		callbacks.Error(id, err)
	}
}

func (t *Tracker) update(id txn.ID, fn func(*txn.Transaction)) {
	t.Lock()
	tx := t.txs[id]
	fn(&tx)
	t.txs[id] = tx
	t.Unlock()

	if tx.Status != txn.StatusInitialized {
		promTxs.WithLabelValues(tx.Status.String()).Inc()
	}

	t.watcher.Notify(txn.Event{Transaction: tx})
}

// Get implements txn.Tracker.
func (t *Tracker) Get(id txn.ID) (txn.Transaction, bool) {
	t.Lock()
	defer t.Unlock()

	tx, found := t.txs[id]

	return tx, found
}

// SetMessage implements txn.Tracker. It returns an error if the transaction
// is unknown.
func (t *Tracker) SetMessage(id txn.ID, message string) error {
	t.Lock()
	tx, found := t.txs[id]
	if !found {
		t.Unlock()
		return xerrors.Errorf("transaction '%s' not found", id)
	}

	tx.Message = message
	t.txs[id] = tx
	t.Unlock()

	t.watcher.Notify(txn.Event{Transaction: tx})

	return nil
}

// Watch implements txn.Tracker.
func (t *Tracker) Watch(observer core.Observer) {
	t.watcher.Add(observer)
}

// Unwatch implements txn.Tracker.
func (t *Tracker) Unwatch(observer core.Observer) {
	t.watcher.Remove(observer)
}

// Close cancels the transactions in flight and waits for their goroutines to
// return.
func (t *Tracker) Close() error {
	t.cancel()
	t.wg.Wait()

	return nil
}
