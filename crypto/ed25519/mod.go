// Package ed25519 implements the cryptographic primitives for the Edwards 25519
// elliptic curve.
//
// The signatures are created using the Schnorr algorithm. An account address
// is the hexadecimal encoding of the public key prefixed by 0x, which allows a
// verifier to check a signed message with the address only.
//
// Related Papers:
//
// Efficient Identification and Signatures for Smart Cards (1989)
// https://link.springer.com/chapter/10.1007/0-387-34805-0_22
//
// Documentation Last Review: 11.08.2026
//
package ed25519

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"go.canvass.io/canvass/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

const (
	// Algorithm is the name of the curve used for the schnorr signature.
	Algorithm = "CURVE-ED25519"

	// messagePrefix is prepended to signed messages so that a message
	// signature can never be replayed as a transaction signature.
	messagePrefix = "\x19Canvass Signed Message:\n"
)

var suite = suites.MustFind("Ed25519")

// PublicKey is the public key adapter to the Kyber Ed25519 public key.
//
// - implements crypto.PublicKey
type PublicKey struct {
	point kyber.Point
}

// NewPublicKey returns a new public key from the data.
func NewPublicKey(data []byte) (PublicKey, error) {
	point := suite.Point()
	err := point.UnmarshalBinary(data)
	if err != nil {
		return PublicKey{}, xerrors.Errorf("couldn't unmarshal point: %v", err)
	}

	return PublicKey{point: point}, nil
}

// NewPublicKeyFromAddress returns the public key encoded in the address.
func NewPublicKeyFromAddress(address string) (PublicKey, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(address), "0x"))
	if err != nil {
		return PublicKey{}, xerrors.Errorf("malformed address: %v", err)
	}

	pk, err := NewPublicKey(data)
	if err != nil {
		return PublicKey{}, xerrors.Errorf("invalid address: %v", err)
	}

	return pk, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. It produces a slice of
// bytes representing the public key.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// MarshalText implements encoding.TextMarshaler. It returns a text
// representation of the public key.
func (pk PublicKey) MarshalText() ([]byte, error) {
	buffer, err := pk.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(fmt.Sprintf("schnorr:%x", buffer)), nil
}

// Verify implements crypto.PublicKey. It returns nil if the signature matches
// the message for this public key.
func (pk PublicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(Signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := schnorr.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("schnorr verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey. It returns true if the other public key
// is the same.
func (pk PublicKey) Equal(other interface{}) bool {
	pubkey, ok := other.(PublicKey)
	if !ok {
		return false
	}

	return pubkey.point.Equal(pk.point)
}

// Address returns the account address of the public key.
func (pk PublicKey) Address() string {
	buffer, err := pk.MarshalBinary()
	if err != nil {
		return "0x"
	}

	return "0x" + hex.EncodeToString(buffer)
}

// String implements fmt.Stringer. It returns a short representation of the
// point.
func (pk PublicKey) String() string {
	buffer, err := pk.MarshalText()
	if err != nil {
		return "schnorr:malformed_point"
	}

	// Output only the prefix and 16 characters of the buffer in hexadecimal.
	return string(buffer)[:8+16]
}

// Signature is the adapter of the Kyber Schnorr signature.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
}

// NewSignature returns a new signature from the data.
func NewSignature(data []byte) Signature {
	return Signature{data: data}
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns a slice of
// bytes representing the signature.
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Equal implements crypto.Signature. It returns true if both signatures are the
// same.
func (sig Signature) Equal(other crypto.Signature) bool {
	otherSig, ok := other.(Signature)
	if !ok {
		return false
	}

	return bytes.Equal(sig.data, otherSig.data)
}

// Signer implements a signer that is creating Schnorr signatures using the
// private key of the Ed25519 elliptic curve.
//
// - implements crypto.Signer
type Signer struct {
	keyPair *key.Pair
}

// NewSigner returns a new random schnorr signer.
func NewSigner() Signer {
	return Signer{keyPair: key.NewKeyPair(suite)}
}

// NewSignerFromBytes returns the signer of the marshaled private key.
func NewSignerFromBytes(data []byte) (Signer, error) {
	scalar := suite.Scalar()
	err := scalar.UnmarshalBinary(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("couldn't unmarshal scalar: %v", err)
	}

	pair := &key.Pair{
		Private: scalar,
		Public:  suite.Point().Mul(scalar, nil),
	}

	return Signer{keyPair: pair}, nil
}

// GetPublicKey implements crypto.Signer. It returns the public key of the
// signer that can be used to verify signatures.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{point: s.keyPair.Public}
}

// Address returns the account address of the signer.
func (s Signer) Address() string {
	return PublicKey{point: s.keyPair.Public}.Address()
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the private
// key of the signer.
func (s Signer) MarshalBinary() ([]byte, error) {
	return s.keyPair.Private.MarshalBinary()
}

// Sign implements crypto.Signer. It signs the message in parameter and returns
// the signature, or an error if it cannot sign.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	sig, err := schnorr.Sign(suite, s.keyPair.Private, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make schnorr signature: %v", err)
	}

	return Signature{data: sig}, nil
}

// SignMessage signs the prefixed message and returns the hexadecimal encoding
// of the signature.
func SignMessage(signer crypto.Signer, msg []byte) (string, error) {
	sig, err := signer.Sign(prefixed(msg))
	if err != nil {
		return "", xerrors.Errorf("signer: %v", err)
	}

	data, err := sig.MarshalBinary()
	if err != nil {
		return "", xerrors.Errorf("couldn't marshal signature: %v", err)
	}

	return "0x" + hex.EncodeToString(data), nil
}

// VerifyMessage verifies that the signature produced by SignMessage is from
// the owner of the address.
func VerifyMessage(address string, msg []byte, signature string) error {
	pk, err := NewPublicKeyFromAddress(address)
	if err != nil {
		return xerrors.Errorf("public key: %v", err)
	}

	data, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return xerrors.Errorf("malformed signature: %v", err)
	}

	return pk.Verify(prefixed(msg), NewSignature(data))
}

// Generator generates new private keys.
//
// - implements loader.Generator
type Generator struct{}

// Generate implements loader.Generator. It returns the marshaled private key
// of a new random signer.
func (Generator) Generate() ([]byte, error) {
	return NewSigner().MarshalBinary()
}

func prefixed(msg []byte) []byte {
	return append([]byte(fmt.Sprintf("%s%d", messagePrefix, len(msg))), msg...)
}
