// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed by
// the unit test and it is also possible to record the call of functions of an
// object in some cases.
package fake

import (
	"sync"

	"go.canvass.io/canvass/crypto"
	"golang.org/x/xerrors"
)

// Call is a tool to keep track of a function calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// NewCall returns a new empty call record.
func NewCall() *Call {
	return &Call{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.Lock()
	c.calls = append(c.calls, args)
	c.Unlock()
}

// Clear clears the array of calls.
func (c *Call) Clear() {
	c.Lock()
	c.calls = nil
	c.Unlock()
}

// GetError returns the fake error.
func GetError() error {
	return xerrors.New("fake error")
}

// Err returns the expected message of an error wrapping the fake error.
func Err(msg string) string {
	return msg + ": fake error"
}

// PublicKey is a fake implementation of crypto.PublicKey.
//
// - implements crypto.PublicKey
type PublicKey struct {
	err       error
	verifyErr error
}

// NewBadPublicKey returns a new fake public key that returns error when
// appropriate.
func NewBadPublicKey() PublicKey {
	return PublicKey{err: GetError(), verifyErr: GetError()}
}

// Verify implements crypto.PublicKey.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.verifyErr
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	_, ok := other.(PublicKey)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return []byte("PK"), pk.err
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte("fake:PK"), pk.err
}

// Signature is a fake implementation of crypto.Signature.
//
// - implements crypto.Signature
type Signature struct {
	err error
}

// NewBadSignature returns a signature that will return error when
// appropriate.
func NewBadSignature() Signature {
	return Signature{err: GetError()}
}

// Equal implements crypto.Signature.
func (s Signature) Equal(o crypto.Signature) bool {
	_, ok := o.(Signature)
	return ok
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte("SIG"), s.err
}

// Signer is a fake implementation of the crypto.Signer interface.
//
// - implements crypto.Signer
type Signer struct {
	publicKey PublicKey
	err       error
}

// NewSignerWithPublicKey returns a fake signer with the public key.
func NewSignerWithPublicKey(pk PublicKey) Signer {
	return Signer{publicKey: pk}
}

// NewBadSigner returns a fake signer that will return an error when
// appropriate.
func NewBadSigner() Signer {
	return Signer{err: GetError()}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return s.publicKey
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	return Signature{}, s.err
}
