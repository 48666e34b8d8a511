package cryptomanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
	"github.com/mapleapps-ca/vaultsync/internal/cryptoutil"
)

func mustMainKey(t *testing.T) []byte {
	t.Helper()
	key, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestAccountContentRoundTrip(t *testing.T) {
	main, err := NewMainCryptoManager(mustMainKey(t), 1)
	require.NoError(t, err)

	accountKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	identityBlob, _, _, err := GenerateIdentityKeyPair()
	require.NoError(t, err)

	sealed, err := main.SealAccountContent(accountKey, identityBlob)
	require.NoError(t, err)

	gotAccountKey, gotIdentityBlob, err := main.OpenAccountContent(sealed, len(identityBlob))
	require.NoError(t, err)
	require.Equal(t, accountKey, gotAccountKey)
	require.Equal(t, identityBlob, gotIdentityBlob)
}

func TestAccountContentFailsWithWrongMainKey(t *testing.T) {
	main, err := NewMainCryptoManager(mustMainKey(t), 1)
	require.NoError(t, err)
	other, err := NewMainCryptoManager(mustMainKey(t), 1)
	require.NoError(t, err)

	accountKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	identityBlob, _, _, err := GenerateIdentityKeyPair()
	require.NoError(t, err)

	sealed, err := main.SealAccountContent(accountKey, identityBlob)
	require.NoError(t, err)

	_, _, err = other.OpenAccountContent(sealed, len(identityBlob))
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Integrity))
}

func TestCollectionKeyHierarchy(t *testing.T) {
	main, err := NewMainCryptoManager(mustMainKey(t), 1)
	require.NoError(t, err)
	accountKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	acctMgr, err := main.AccountCryptoManager(accountKey)
	require.NoError(t, err)

	collectionKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	sealedCollectionKey, err := acctMgr.SealCollectionKey(collectionKey)
	require.NoError(t, err)

	decrypted, err := acctMgr.OpenCollectionKey(sealedCollectionKey)
	require.NoError(t, err)
	require.Equal(t, collectionKey, decrypted)

	colMgr, err := NewCollectionCryptoManager(decrypted)
	require.NoError(t, err)

	itemMgr, err := colMgr.ItemCryptoManager(nil)
	require.NoError(t, err)

	sealedMeta, err := itemMgr.SealMeta([]byte(`{"name":"Notes"}`))
	require.NoError(t, err)
	meta, err := itemMgr.OpenMeta(sealedMeta)
	require.NoError(t, err)
	require.Equal(t, `{"name":"Notes"}`, string(meta))
}

func TestItemOwnKeySealedUnderCollection(t *testing.T) {
	collectionKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	colMgr, err := NewCollectionCryptoManager(collectionKey)
	require.NoError(t, err)

	itemKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	sealedItemKey, err := colMgr.SealItemKey(itemKey)
	require.NoError(t, err)

	itemMgr, err := colMgr.ItemCryptoManager(sealedItemKey)
	require.NoError(t, err)

	ciphertext, uid, err := itemMgr.SealChunk([]byte("hello"))
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	plaintext, err := itemMgr.OpenChunk(ciphertext, uid)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), plaintext)
}

func TestOpenChunkRejectsMismatchedUID(t *testing.T) {
	collectionKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	colMgr, err := NewCollectionCryptoManager(collectionKey)
	require.NoError(t, err)
	itemMgr, err := colMgr.ItemCryptoManager(nil)
	require.NoError(t, err)

	ciphertext, _, err := itemMgr.SealChunk([]byte("hello"))
	require.NoError(t, err)

	_, err = itemMgr.OpenChunk(ciphertext, "deadbeef")
	require.Error(t, err)
}

func TestRevisionUIDDeterministic(t *testing.T) {
	collectionKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	colMgr, err := NewCollectionCryptoManager(collectionKey)
	require.NoError(t, err)
	itemMgr, err := colMgr.ItemCryptoManager(nil)
	require.NoError(t, err)

	canonical := []byte("meta-bytes|chunkuid1,chunkuid2|false")
	uid1, err := itemMgr.RevisionUID(canonical)
	require.NoError(t, err)
	uid2, err := itemMgr.RevisionUID(canonical)
	require.NoError(t, err)
	require.Equal(t, uid1, uid2)

	ok, err := itemMgr.VerifyRevisionUID(canonical, uid1)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInvitationSealOpen(t *testing.T) {
	senderMain, err := NewMainCryptoManager(mustMainKey(t), 1)
	require.NoError(t, err)
	senderBlob, senderBoxPub, senderSignPub, err := GenerateIdentityKeyPair()
	require.NoError(t, err)
	senderIdentity, err := senderMain.IdentityCryptoManager(senderBlob, senderBoxPub, senderSignPub)
	require.NoError(t, err)

	recipientMain, err := NewMainCryptoManager(mustMainKey(t), 1)
	require.NoError(t, err)
	recipientBlob, recipientBoxPub, recipientSignPub, err := GenerateIdentityKeyPair()
	require.NoError(t, err)
	recipientIdentity, err := recipientMain.IdentityCryptoManager(recipientBlob, recipientBoxPub, recipientSignPub)
	require.NoError(t, err)

	collectionKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)

	sealed, err := senderIdentity.SealInvitationKey(collectionKey, recipientIdentity.BoxPublicKey())
	require.NoError(t, err)

	decrypted, err := recipientIdentity.OpenInvitationKey(sealed, senderIdentity.SignPublicKey())
	require.NoError(t, err)
	require.Equal(t, collectionKey, decrypted)
}

func TestRotateKey(t *testing.T) {
	collectionKey, err := cryptoutil.GenerateKey()
	require.NoError(t, err)
	colMgr, err := NewCollectionCryptoManager(collectionKey)
	require.NoError(t, err)

	newKey, hist, err := colMgr.RotateKey("membership change", 1)
	require.NoError(t, err)
	require.NotEqual(t, collectionKey, newKey)
	require.Equal(t, 1, hist.KeyVersion)
	require.NotEmpty(t, hist.SealedKey)

	recovered, err := colMgr.OpenHistoricalKey(hist)
	require.NoError(t, err)
	require.Equal(t, collectionKey, recovered)
}
