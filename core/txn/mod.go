// Package txn defines the abstraction of a transaction tracker.
//
// A tracker follows the lifecycle of a transaction from its creation until it
// is mined, or fails. The caller only holds the identifier returned when the
// tracking starts and is notified through callbacks.
//
// Documentation Last Review: 24.09.2026
//
package txn

import (
	"context"
	"time"

	"go.canvass.io/canvass/chain"
	"go.canvass.io/canvass/core"
)

// ID is the opaque identifier of a tracked transaction.
type ID string

// Status is the stage of a tracked transaction.
type Status int

const (
	// StatusInitialized is the status of a transaction being created.
	StatusInitialized Status = iota
	// StatusPending is the status of a transaction sent but not mined.
	StatusPending
	// StatusMined is the status of a transaction included in a block.
	StatusMined
	// StatusFailed is the status of a transaction that could not be created
	// or mined.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusPending:
		return "pending"
	case StatusMined:
		return "mined"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transaction is the state of a tracked transaction.
type Transaction struct {
	ID      ID
	Account string
	// Message is the display message of the transaction.
	Message string
	Status  Status
	// Hash is set once the transaction is pending.
	Hash string
	// Err is set when the transaction failed.
	Err       error
	CreatedAt time.Time
}

// Creator sends a transaction and returns it pending.
type Creator func(ctx context.Context) (chain.PendingTx, error)

// Callbacks are the hooks triggered along the lifecycle of a transaction. Any
// of them can be nil.
type Callbacks struct {
	Pending func(hash string)
	Mined   func(id ID)
	Error   func(id ID, err error)
}

// Event is the event sent to the observers when a transaction changes.
type Event struct {
	Transaction Transaction
}

// Tracker is the maintainer of the transactions of the accounts.
type Tracker interface {
	// Watch adds the observer to the list notified with an Event when a
	// transaction changes.
	Watch(observer core.Observer)

	// Unwatch removes the observer.
	Unwatch(observer core.Observer)

	// Track starts the creation of a transaction in the background and
	// returns its identifier.
	Track(creator Creator, account, message string, callbacks Callbacks) ID

	// Get returns the transaction if it exists.
	Get(id ID) (Transaction, bool)

	// SetMessage updates the display message of the transaction.
	SetMessage(id ID, message string) error
}
