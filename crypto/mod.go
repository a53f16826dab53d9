// Package crypto defines the cryptographic primitives used by the wallet to
// sign the comment nonces and by the comment service to verify them.
//
// Documentation Last Review: 11.08.2026
//
package crypto

import "encoding"

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil if the signature matches the message for this public
	// key, otherwise an error.
	Verify(msg []byte, signature Signature) error

	// Equal returns true when both public keys are the same.
	Equal(other interface{}) bool
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler

	// Equal returns true when both signatures are the same.
	Equal(other Signature) bool
}

// Signer provides the primitives to sign messages.
type Signer interface {
	// GetPublicKey returns the public key of the signer.
	GetPublicKey() PublicKey

	// Sign signs the message and returns the signature.
	Sign(msg []byte) (Signature, error)
}
