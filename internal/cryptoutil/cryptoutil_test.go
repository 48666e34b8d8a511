package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveMainKeyDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	params := DefaultKDFParams()

	k1, err := DeriveMainKey("correct horse battery staple", salt, params)
	require.NoError(t, err)
	k2, err := DeriveMainKey("correct horse battery staple", salt, params)
	require.NoError(t, err)

	require.Equal(t, k1, k2)
	require.Len(t, k1, KeySize)
}

func TestDeriveMainKeyRejectsBadSalt(t *testing.T) {
	_, err := DeriveMainKey("pw", []byte("too-short"), DefaultKDFParams())
	require.Error(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	plaintext := []byte("hello collection meta")
	ad := []byte("Col")

	sealed, err := Seal(key, plaintext, ad)
	require.NoError(t, err)

	opened, err := Open(key, sealed, ad)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestOpenFailsOnTamperedCiphertext(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	sealed, err := Seal(key, []byte("payload"), []byte("ColItemMeta"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF

	_, err = Open(key, sealed, []byte("ColItemMeta"))
	require.Error(t, err)
}

func TestOpenFailsOnMismatchedAD(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	sealed, err := Seal(key, []byte("payload"), []byte("Col"))
	require.NoError(t, err)

	_, err = Open(key, sealed, []byte("ColItemMeta"))
	require.Error(t, err)
}

func TestMACVerify(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	data := []byte("revision contents")
	mac, err := MAC(key, data)
	require.NoError(t, err)
	require.Len(t, mac, MACSize)

	ok, err := VerifyMAC(key, data, mac)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyMAC(key, []byte("tampered"), mac)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeriveSubkeyDeterministicAndDomainSeparated(t *testing.T) {
	parent, err := GenerateKey()
	require.NoError(t, err)

	a1, err := DeriveSubkey(parent, KeySize, "account")
	require.NoError(t, err)
	a2, err := DeriveSubkey(parent, KeySize, "account")
	require.NoError(t, err)
	require.Equal(t, a1, a2)

	identity, err := DeriveSubkey(parent, KeySize, "identity")
	require.NoError(t, err)
	require.NotEqual(t, a1, identity)
}

func TestBoxSealSignedRoundTrip(t *testing.T) {
	sender, err := GenerateEd25519KeyPair()
	require.NoError(t, err)
	recipient, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	plaintext := []byte("a collection key, sealed for sharing")
	ad := []byte("Invitation")

	sealed, err := BoxSealSigned(sender.Private, recipient.Public, plaintext, ad)
	require.NoError(t, err)

	opened, err := BoxOpenSigned(recipient.Private, sender.Public, sealed, ad)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestBoxOpenSignedRejectsWrongSigner(t *testing.T) {
	sender, err := GenerateEd25519KeyPair()
	require.NoError(t, err)
	impostor, err := GenerateEd25519KeyPair()
	require.NoError(t, err)
	recipient, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	sealed, err := BoxSealSigned(sender.Private, recipient.Public, []byte("secret"), nil)
	require.NoError(t, err)

	_, err = BoxOpenSigned(recipient.Private, impostor.Public, sealed, nil)
	require.Error(t, err)
}

func TestBoxOpenSignedRejectsWrongRecipient(t *testing.T) {
	sender, err := GenerateEd25519KeyPair()
	require.NoError(t, err)
	recipient, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	other, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	sealed, err := BoxSealSigned(sender.Private, recipient.Public, []byte("secret"), nil)
	require.NoError(t, err)

	_, err = BoxOpenSigned(other.Private, sender.Public, sealed, nil)
	require.Error(t, err)
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for _, v := range b {
		require.Zero(t, v)
	}
}
