// Package wallet defines the provider of a connected wallet and implements a
// local one backed by a signer.
//
// Documentation Last Review: 21.09.2026
//
package wallet

import (
	"context"
	"encoding/hex"

	"go.canvass.io/canvass/chain"
	"go.canvass.io/canvass/crypto"
	"go.canvass.io/canvass/crypto/ed25519"
	"golang.org/x/xerrors"
)

// Provider is a wallet already connected to an account on a network.
type Provider interface {
	// Account returns the address of the connected account.
	Account() string

	// Network returns the name of the network the wallet is connected to.
	Network() string

	// VoteDelegate returns the address of the vote delegate contract of the
	// account, or an empty string if the account votes directly.
	VoteDelegate() string

	// Contracts returns the contracts of the network.
	Contracts() chain.Contracts

	// GetTransaction returns the receipt of the transaction with the number
	// of confirmations.
	GetTransaction(ctx context.Context, hash string) (chain.Receipt, error)

	// SignMessage signs the message with the key of the account.
	SignMessage(ctx context.Context, msg []byte) (string, error)
}

// Node is the access to the chain used by a local wallet.
type Node interface {
	chain.Contracts

	Network() string

	Transaction(hash string) (chain.Receipt, error)

	DelegateOf(owner string) (string, bool)
}

// Local is a wallet holding its signer in memory.
//
// - implements wallet.Provider
type Local struct {
	signer  crypto.Signer
	account string
	node    Node
}

// NewLocal returns a wallet connected to the account of the signer.
func NewLocal(signer crypto.Signer, node Node) (Local, error) {
	data, err := signer.GetPublicKey().MarshalBinary()
	if err != nil {
		return Local{}, xerrors.Errorf("couldn't marshal public key: %v", err)
	}

	w := Local{
		signer:  signer,
		account: "0x" + hex.EncodeToString(data),
		node:    node,
	}

	return w, nil
}

// Account implements wallet.Provider.
func (w Local) Account() string {
	return w.account
}

// Network implements wallet.Provider.
func (w Local) Network() string {
	return w.node.Network()
}

// VoteDelegate implements wallet.Provider. It looks up the delegate contract
// owned by the account.
func (w Local) VoteDelegate() string {
	addr, found := w.node.DelegateOf(w.account)
	if !found {
		return ""
	}

	return addr
}

// Contracts implements wallet.Provider.
func (w Local) Contracts() chain.Contracts {
	return w.node
}

// GetTransaction implements wallet.Provider.
func (w Local) GetTransaction(ctx context.Context, hash string) (chain.Receipt, error) {
	err := ctx.Err()
	if err != nil {
		return chain.Receipt{}, err
	}

	return w.node.Transaction(hash)
}

// SignMessage implements wallet.Provider. It returns the hexadecimal
// signature of the prefixed message.
func (w Local) SignMessage(ctx context.Context, msg []byte) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	sig, err := ed25519.SignMessage(w.signer, msg)
	if err != nil {
		return "", xerrors.Errorf("couldn't sign message: %v", err)
	}

	return sig, nil
}
