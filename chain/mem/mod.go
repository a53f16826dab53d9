// Package mem implements an in-memory chain that hosts the polling contract
// and the vote delegate contracts.
//
// Transactions are pending until a block is mined, either explicitly with
// Mine, or automatically after each transaction when the option is set.
//
// Documentation Last Review: 21.09.2026
//
package mem

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	canvass "go.canvass.io/canvass"
	"go.canvass.io/canvass/chain"
	"golang.org/x/xerrors"
)

// PollingAddress is the address of the polling contract.
const PollingAddress = "0x00000000000000000000000000000000000000000000000000000000000000a1"

// Option is the type of option to create a chain.
type Option func(*Chain)

// WithAutomine is an option to mine a block after each transaction.
func WithAutomine() Option {
	return func(c *Chain) {
		c.automine = true
	}
}

// WithNetwork is an option to set the name of the network.
func WithNetwork(name string) Option {
	return func(c *Chain) {
		c.network = name
	}
}

type voteKey struct {
	voter string
	poll  uint64
}

type call struct {
	from    string
	voter   string
	pollIDs []uint64
	options []*big.Int
}

type transaction struct {
	hash  string
	call  call
	block uint64
	done  chan struct{}
}

// Chain is an in-memory ledger of blocks.
//
// - implements chain.Contracts
type Chain struct {
	sync.Mutex

	logger    zerolog.Logger
	network   string
	automine  bool
	height    uint64
	nonce     uint64
	pending   []*transaction
	txs       map[string]*transaction
	votes     map[voteKey]*big.Int
	delegates map[string]string
}

// NewChain creates a new empty chain.
func NewChain(opts ...Option) *Chain {
	c := &Chain{
		logger:    canvass.Logger.With().Str("chain", "mem").Logger(),
		network:   "mem",
		txs:       make(map[string]*transaction),
		votes:     make(map[voteKey]*big.Int),
		delegates: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Network returns the name of the network.
func (c *Chain) Network() string {
	return c.network
}

// Height returns the number of blocks.
func (c *Chain) Height() uint64 {
	c.Lock()
	defer c.Unlock()

	return c.height
}

// Mine creates a block with the pending transactions and returns its index.
// Blocks are created even without transactions so that confirmations grow.
func (c *Chain) Mine() uint64 {
	c.Lock()
	defer c.Unlock()

	return c.mine()
}

func (c *Chain) mine() uint64 {
	c.height++

	for _, tx := range c.pending {
		for i, poll := range tx.call.pollIDs {
			c.votes[voteKey{voter: tx.call.voter, poll: poll}] = tx.call.options[i]
		}

		tx.block = c.height
		close(tx.done)
	}

	c.logger.Debug().
		Uint64("block", c.height).
		Int("txs", len(c.pending)).
		Msg("block mined")

	c.pending = nil

	return c.height
}

// Transaction returns the receipt of the transaction. The number of
// confirmations is zero while the transaction is pending.
func (c *Chain) Transaction(hash string) (chain.Receipt, error) {
	c.Lock()
	defer c.Unlock()

	tx, found := c.txs[strings.ToLower(hash)]
	if !found {
		return chain.Receipt{}, xerrors.Errorf("%s: %w", hash, chain.ErrNotFound)
	}

	receipt := chain.Receipt{Hash: tx.hash, Block: tx.block}
	if tx.block > 0 {
		receipt.Confirmations = c.height - tx.block + 1
	}

	return receipt, nil
}

// VoteOf returns the latest encoded option cast by the voter on the poll.
func (c *Chain) VoteOf(voter string, poll uint64) (*big.Int, bool) {
	c.Lock()
	defer c.Unlock()

	option, found := c.votes[voteKey{voter: strings.ToLower(voter), poll: poll}]

	return option, found
}

// DeployDelegate creates a vote delegate contract owned by the account and
// returns its address. The owner is the only account allowed to vote with it.
func (c *Chain) DeployDelegate(owner string) string {
	c.Lock()
	defer c.Unlock()

	c.nonce++
	addr := c.address("delegate", owner, c.nonce)

	c.delegates[addr] = strings.ToLower(owner)

	return addr
}

// DelegateOf returns the address of the vote delegate contract owned by the
// account, if any.
func (c *Chain) DelegateOf(owner string) (string, bool) {
	c.Lock()
	defer c.Unlock()

	owner = strings.ToLower(owner)

	for addr, o := range c.delegates {
		if o == owner {
			return addr, true
		}
	}

	return "", false
}

// Polling implements chain.Contracts. It returns the polling contract.
func (c *Chain) Polling() chain.VotingContract {
	return contract{chain: c, address: PollingAddress}
}

// VoteDelegate implements chain.Contracts. It returns the delegate contract
// deployed at the address, or an error if it does not exist.
func (c *Chain) VoteDelegate(address string) (chain.VotingContract, error) {
	c.Lock()
	defer c.Unlock()

	address = strings.ToLower(address)

	owner, found := c.delegates[address]
	if !found {
		return nil, xerrors.Errorf("no delegate contract at %s", address)
	}

	return contract{chain: c, address: address, owner: owner}, nil
}

func (c *Chain) send(ctx context.Context, msg call) (chain.PendingTx, error) {
	err := ctx.Err()
	if err != nil {
		return nil, xerrors.Errorf("couldn't send transaction: %v", err)
	}

	c.Lock()
	defer c.Unlock()

	c.nonce++

	tx := &transaction{
		hash: c.address("tx", msg.from, c.nonce),
		call: msg,
		done: make(chan struct{}),
	}

	c.txs[tx.hash] = tx
	c.pending = append(c.pending, tx)

	c.logger.Debug().
		Str("hash", tx.hash).
		Str("from", msg.from).
		Int("polls", len(msg.pollIDs)).
		Msg("transaction received")

	if c.automine {
		c.mine()
	}

	return pendingTx{chain: c, tx: tx}, nil
}

func (c *Chain) address(kind, from string, nonce uint64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%s:%s:", c.network, kind, strings.ToLower(from))

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, nonce)
	h.Write(buffer)

	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// contract is a voting contract of the chain. The polling contract records
// the votes of the sender, a delegate contract records the votes of itself
// and only accepts transactions from its owner.
//
// - implements chain.VotingContract
type contract struct {
	chain   *Chain
	address string
	owner   string
}

// Address implements chain.VotingContract.
func (c contract) Address() string {
	return c.address
}

// Vote implements chain.VotingContract. It validates the call and sends a
// transaction to the chain.
func (c contract) Vote(ctx context.Context, from string, pollIDs []uint64,
	optionIDs []*big.Int) (chain.PendingTx, error) {

	from = strings.ToLower(from)

	if len(pollIDs) == 0 {
		return nil, xerrors.New("no poll to vote on")
	}

	if len(pollIDs) != len(optionIDs) {
		return nil, xerrors.Errorf("mismatching lengths: %d polls, %d options",
			len(pollIDs), len(optionIDs))
	}

	voter := from
	if c.owner != "" {
		if from != c.owner {
			return nil, xerrors.Errorf("'%s' is not the owner of delegate %s", from, c.address)
		}

		voter = c.address
	}

	msg := call{
		from:    from,
		voter:   voter,
		pollIDs: append([]uint64{}, pollIDs...),
		options: append([]*big.Int{}, optionIDs...),
	}

	return c.chain.send(ctx, msg)
}

// pendingTx is a transaction waiting to be mined.
//
// - implements chain.PendingTx
type pendingTx struct {
	chain *Chain
	tx    *transaction
}

// Hash implements chain.PendingTx.
func (p pendingTx) Hash() string {
	return p.tx.hash
}

// Wait implements chain.PendingTx. It returns the receipt once the
// transaction is included in a block.
func (p pendingTx) Wait(ctx context.Context) (chain.Receipt, error) {
	select {
	case <-p.tx.done:
		return p.chain.Transaction(p.tx.hash)
	case <-ctx.Done():
		return chain.Receipt{}, xerrors.Errorf("transaction %s not mined: %v",
			p.tx.hash, ctx.Err())
	}
}
