// Package chain defines the surface of the polling contracts a ballot is
// submitted to.
//
// A vote is a transaction sent to a contract. Once sent, the transaction is
// pending until it is included in a block, after which every new block adds a
// confirmation.
//
// Documentation Last Review: 21.09.2026
//
package chain

import (
	"context"
	"math/big"

	"golang.org/x/xerrors"
)

// ErrNotFound is returned when a transaction is unknown to the chain.
var ErrNotFound = xerrors.New("transaction not found")

// Receipt is the inclusion proof of a transaction.
type Receipt struct {
	Hash string
	// Block is the index of the block including the transaction.
	Block uint64
	// Confirmations is the number of blocks since the inclusion, the block of
	// inclusion included. It is zero while the transaction is pending.
	Confirmations uint64
}

// PendingTx is a transaction sent to the chain but not necessarily included
// yet.
type PendingTx interface {
	// Hash returns the hash of the transaction.
	Hash() string

	// Wait blocks until the transaction is included in a block, or the
	// context is done.
	Wait(ctx context.Context) (Receipt, error)
}

// VotingContract is the contract casting votes on polls. Both the polling
// contract and the vote delegate contracts implement it.
type VotingContract interface {
	// Address returns the address of the contract.
	Address() string

	// Vote casts the votes of the account for the list of polls. Both slices
	// must have the same length.
	Vote(ctx context.Context, from string, pollIDs []uint64,
		optionIDs []*big.Int) (PendingTx, error)
}

// Contracts is the set of contracts deployed on a network.
type Contracts interface {
	// Polling returns the direct polling contract.
	Polling() VotingContract

	// VoteDelegate returns the delegate contract at the address.
	VoteDelegate(address string) (VotingContract, error)
}
