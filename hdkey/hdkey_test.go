package hdkey

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func testPriv(i byte) *btcec.PrivateKey {
	var b [32]byte
	b[31] = i
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	return priv
}

func testMaster(t *testing.T, i byte) *hdkeychain.ExtendedKey {
	t.Helper()
	seed := bytes.Repeat([]byte{i}, 32)
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	return master
}

func testXpub(t *testing.T, i byte) *hdkeychain.ExtendedKey {
	t.Helper()
	xpub, err := testMaster(t, i).Neuter()
	require.NoError(t, err)
	return xpub
}

func TestParseCompressedPubkey(t *testing.T) {
	pub := testPriv(1).PubKey()
	k, err := Parse(hex.EncodeToString(pub.SerializeCompressed()), false)
	require.NoError(t, err)
	require.Equal(t, TypePublic, k.Type())
	require.False(t, k.IsUncompressed())
	require.False(t, k.HasWildcard())

	d, err := k.Derive("")
	require.NoError(t, err)
	require.Equal(t, pub.SerializeCompressed(), d.SerializedPub())
}

func TestParseUncompressedPubkey(t *testing.T) {
	pub := testPriv(2).PubKey()
	k, err := Parse(hex.EncodeToString(pub.SerializeUncompressed()), false)
	require.NoError(t, err)
	require.Equal(t, TypePublic, k.Type())
	require.True(t, k.IsUncompressed())

	d, err := k.Derive("")
	require.NoError(t, err)
	require.Equal(t, pub.SerializeUncompressed(), d.SerializedPub())
}

func TestParseXOnly(t *testing.T) {
	pub := testPriv(3).PubKey()
	xonly := schnorr.SerializePubKey(pub)

	k, err := Parse(hex.EncodeToString(xonly), true)
	require.NoError(t, err)
	require.Equal(t, TypeSchnorr, k.Type())
	d, err := k.Derive("")
	require.NoError(t, err)
	require.Equal(t, xonly, d.XOnly())

	// 33-byte keys are rejected under taproot, 32-byte keys outside it.
	_, err = Parse(hex.EncodeToString(pub.SerializeCompressed()), true)
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = Parse(hex.EncodeToString(xonly), false)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseWIF(t *testing.T) {
	for _, compress := range []bool{true, false} {
		wif, err := btcutil.NewWIF(testPriv(4), &chaincfg.MainNetParams, compress)
		require.NoError(t, err)
		k, err := Parse(wif.String(), false)
		require.NoError(t, err)
		require.Equal(t, TypePublic, k.Type())
		require.Equal(t, !compress, k.IsUncompressed())
		require.NotNil(t, k.WIF())
	}
}

func TestParseExtendedKey(t *testing.T) {
	xpub := testXpub(t, 1)
	k, err := Parse(xpub.String()+"/0/1", false)
	require.NoError(t, err)
	require.Equal(t, TypeBip32Pub, k.Type())
	require.False(t, k.HasWildcard())
	require.Equal(t, xpub.String(), k.Base().String())

	want, err := xpub.Derive(0)
	require.NoError(t, err)
	want, err = want.Derive(1)
	require.NoError(t, err)
	wantPub, err := want.ECPubKey()
	require.NoError(t, err)

	d, err := k.Derive("")
	require.NoError(t, err)
	require.Equal(t, wantPub.SerializeCompressed(), d.SerializedPub())
	require.Equal(t, want.String(), k.Canonical())
}

func TestParseWildcard(t *testing.T) {
	xpub := testXpub(t, 2)
	k, err := Parse(xpub.String()+"/7/*", false)
	require.NoError(t, err)
	require.True(t, k.HasWildcard())

	d, err := k.Derive("9")
	require.NoError(t, err)
	step, err := xpub.Derive(7)
	require.NoError(t, err)
	step, err = step.Derive(9)
	require.NoError(t, err)
	wantPub, err := step.ECPubKey()
	require.NoError(t, err)
	require.Equal(t, wantPub.SerializeCompressed(), d.SerializedPub())

	// A subpath argument derives deeper.
	d, err = k.Derive("9/3")
	require.NoError(t, err)
	deeper, err := step.Derive(3)
	require.NoError(t, err)
	deeperPub, err := deeper.ECPubKey()
	require.NoError(t, err)
	require.Equal(t, deeperPub.SerializeCompressed(), d.SerializedPub())

	_, err = k.Derive("x")
	require.ErrorIs(t, err, ErrBadPath)
}

func TestParseExtendedPrivate(t *testing.T) {
	master := testMaster(t, 3)
	k, err := Parse(master.String()+"/0h/*", false)
	require.NoError(t, err)
	require.Equal(t, TypeBip32Priv, k.Type())
	require.True(t, k.HasWildcard())

	d, err := k.Derive("2")
	require.NoError(t, err)
	require.True(t, d.Key.IsPrivate())

	step, err := master.Derive(hdkeychain.HardenedKeyStart)
	require.NoError(t, err)
	step, err = step.Derive(2)
	require.NoError(t, err)
	wantPub, err := step.ECPubKey()
	require.NoError(t, err)
	require.Equal(t, wantPub.SerializeCompressed(), d.SerializedPub())
}

func TestWildcardPlacement(t *testing.T) {
	xpub := testXpub(t, 1)
	_, err := Parse(xpub.String()+"/*/1", false)
	require.ErrorIs(t, err, ErrWildcardMisuse)

	_, err = Parse(xpub.String()+"/0/*h", false)
	require.ErrorIs(t, err, ErrWildcardMisuse)

	master := testMaster(t, 1)
	k, err := Parse(master.String()+"/0/*h", false)
	require.NoError(t, err)
	require.True(t, k.HasHardenedWildcard())
}

func TestHardenedFromPublic(t *testing.T) {
	xpub := testXpub(t, 1)
	_, err := Parse(xpub.String()+"/0h/1", false)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestOrigin(t *testing.T) {
	xpub := testXpub(t, 1)
	k, err := Parse("[d34db33f/84h/0h/0h]"+xpub.String()+"/0/*", false)
	require.NoError(t, err)
	require.Equal(t, "d34db33f/84h/0h/0h", k.Origin())
	require.True(t, k.HasWildcard())

	_, err = Parse("[xx/0]"+xpub.String(), false)
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = Parse("[d34db33f/0"+xpub.String(), false)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestSlip132Format(t *testing.T) {
	xpub := testXpub(t, 1)
	require.Equal(t, FormatNormal, mustParse(t, xpub.String()).Format())

	zpub, err := xpub.CloneWithVersion([]byte{0x04, 0xb2, 0x47, 0x46})
	require.NoError(t, err)
	k := mustParse(t, zpub.String())
	require.Equal(t, FormatBip84, k.Format())
	// The canonical form is normalized back to an xpub.
	require.Equal(t, xpub.String(), k.Canonical())

	ypub, err := xpub.CloneWithVersion([]byte{0x04, 0x9d, 0x7c, 0xb2})
	require.NoError(t, err)
	require.Equal(t, FormatBip49, mustParse(t, ypub.String()).Format())
}

func mustParse(t *testing.T, value string) *KeyData {
	t.Helper()
	k, err := Parse(value, false)
	require.NoError(t, err)
	return k
}

func TestParsePath(t *testing.T) {
	path, err := ParsePath("m/84h/0'/1/2")
	require.NoError(t, err)
	h := uint32(hdkeychain.HardenedKeyStart)
	require.Equal(t, []uint32{84 + h, 0 + h, 1, 2}, path)

	_, err = ParsePath("1/x")
	require.ErrorIs(t, err, ErrBadPath)
	_, err = ParsePath("2147483648")
	require.ErrorIs(t, err, ErrBadPath)
}
