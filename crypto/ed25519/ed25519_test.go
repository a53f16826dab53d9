package ed25519

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.canvass.io/canvass/internal/testing/fake"
)

func TestPublicKey_New(t *testing.T) {
	point := suite.Point().Pick(suite.RandomStream())
	pointBuf, err := point.MarshalBinary()
	require.NoError(t, err)

	pubKey, err := NewPublicKey(pointBuf)
	require.NoError(t, err)
	require.True(t, pubKey.point.Equal(point))

	_, err = NewPublicKey([]byte{})
	require.EqualError(t, err, "couldn't unmarshal point: invalid Ed25519 curve point")
}

func TestPublicKey_Address(t *testing.T) {
	signer := NewSigner()
	pk := signer.GetPublicKey().(PublicKey)

	addr := pk.Address()
	require.True(t, strings.HasPrefix(addr, "0x"))
	require.Len(t, addr, 2+64)
	require.Equal(t, addr, signer.Address())

	other, err := NewPublicKeyFromAddress(strings.ToUpper(addr[2:]))
	require.NoError(t, err)
	require.True(t, other.Equal(pk))

	_, err = NewPublicKeyFromAddress("0xzz")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed address: ")

	_, err = NewPublicKeyFromAddress("0xabcd")
	require.EqualError(t, err,
		"invalid address: couldn't unmarshal point: invalid Ed25519 curve point")
}

func TestPublicKey_Verify(t *testing.T) {
	signer := NewSigner()

	sig, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("deadbeef"), sig)
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("deadbee"), sig)
	require.EqualError(t, err, "schnorr verify failed: schnorr: invalid signature")

	err = signer.GetPublicKey().Verify([]byte{}, fake.Signature{})
	require.EqualError(t, err, "invalid signature type 'fake.Signature'")
}

func TestPublicKey_Equal(t *testing.T) {
	signer := NewSigner()

	require.True(t, signer.GetPublicKey().Equal(signer.GetPublicKey()))
	require.False(t, signer.GetPublicKey().Equal(NewSigner().GetPublicKey()))
	require.False(t, signer.GetPublicKey().Equal(fake.PublicKey{}))
}

func TestPublicKey_String(t *testing.T) {
	pk := NewSigner().GetPublicKey().(PublicKey)

	require.True(t, strings.HasPrefix(pk.String(), "schnorr:"))
	require.Len(t, pk.String(), 8+16)
}

func TestSignature_Equal(t *testing.T) {
	sig := NewSignature([]byte{1, 2, 3})

	require.True(t, sig.Equal(NewSignature([]byte{1, 2, 3})))
	require.False(t, sig.Equal(NewSignature([]byte{1, 2})))
	require.False(t, sig.Equal(fake.Signature{}))
}

func TestSigner_FromBytes(t *testing.T) {
	signer := NewSigner()

	data, err := signer.MarshalBinary()
	require.NoError(t, err)

	loaded, err := NewSignerFromBytes(data)
	require.NoError(t, err)
	require.True(t, loaded.GetPublicKey().Equal(signer.GetPublicKey()))

	_, err = NewSignerFromBytes([]byte{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't unmarshal scalar: ")

	data, err = Generator{}.Generate()
	require.NoError(t, err)
	require.Len(t, data, 32)
}

func TestSignMessage(t *testing.T) {
	signer := NewSigner()

	sig, err := SignMessage(signer, []byte("nonce"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sig, "0x"))

	err = VerifyMessage(signer.Address(), []byte("nonce"), sig)
	require.NoError(t, err)

	err = VerifyMessage(NewSigner().Address(), []byte("nonce"), sig)
	require.EqualError(t, err, "schnorr verify failed: schnorr: invalid signature")

	err = VerifyMessage(signer.Address(), []byte("nonce"), "0xno")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed signature: ")

	err = VerifyMessage("0x", []byte("nonce"), sig)
	require.Error(t, err)
	require.Contains(t, err.Error(), "public key: ")

	_, err = SignMessage(fake.NewBadSigner(), []byte("nonce"))
	require.EqualError(t, err, fake.Err("signer"))
}
