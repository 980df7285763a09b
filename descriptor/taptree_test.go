package descriptor

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

func TestTaprootSingleLeafTree(t *testing.T) {
	desc := fmt.Sprintf("tr(%s,pk(%s))", testXOnlyHex(1), testXOnlyHex(2))
	d, err := Parse(desc)
	require.NoError(t, err)

	ref, err := d.Reference()
	require.NoError(t, err)
	require.Len(t, ref.TapLeaves, 1)
	require.Empty(t, ref.TapLeaves[0].InclusionProof)

	leaf := txscript.NewBaseTapLeaf(tapscriptPk(t, testXOnlyHex(2)))
	root := leaf.TapHash()
	require.Equal(t, root[:], ref.TapRootHash[:])

	internal, err := schnorr.ParsePubKey(mustHex(t, testXOnlyHex(1)))
	require.NoError(t, err)
	want := txscript.ComputeTaprootOutputKey(internal, root[:])
	require.Equal(t, schnorr.SerializePubKey(want), ref.Script[2:])
}

func TestTaprootRawAndKeyedLeaves(t *testing.T) {
	internalHex := testXOnlyHex(1)
	keyedHex := testXOnlyHex(2)
	desc := fmt.Sprintf("tr(%s,{tl(51),%s})", internalHex, keyedHex)
	d, err := Parse(desc)
	require.NoError(t, err)

	ref, err := d.Reference()
	require.NoError(t, err)
	// Only the tl() leaf is a spendable script leaf; the keyed entry
	// contributes its x-only bytes as a subtree hash.
	require.Len(t, ref.TapLeaves, 1)
	require.Equal(t, []byte{txscript.OP_TRUE}, ref.TapLeaves[0].Script)

	var keyedHash chainhash.Hash
	copy(keyedHash[:], mustHex(t, keyedHex))
	branch := txscript.NewTapBranch(
		txscript.NewBaseTapLeaf([]byte{txscript.OP_TRUE}),
		hashNode(keyedHash),
	)
	root := branch.TapHash()
	require.Equal(t, root[:], ref.TapRootHash[:])
}

func TestTaprootTreeWildcards(t *testing.T) {
	xpub := testXpub(t, 5)
	desc := fmt.Sprintf("tr(%s/0/*,{pk(%s/1/*),pk(%s)})", xpub, xpub, testXOnlyHex(4))
	d, err := Parse(desc)
	require.NoError(t, err)
	require.Equal(t, 2, d.NeedArgumentNum())

	// First argument feeds the internal key, the second the first
	// leaf, left to right.
	ref, err := d.Reference("2", "3")
	require.NoError(t, err)

	internal := derivePub(t, xpub, 0, 2)
	leafKey := derivePub(t, xpub, 1, 3)
	wantLeaf, err := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(leafKey)).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)
	require.Equal(t, wantLeaf, ref.TapLeaves[0].Script)
	require.Equal(t, schnorr.SerializePubKey(internal), ref.Keys[0].XOnly)
}

func TestTaprootTreeSyntaxErrors(t *testing.T) {
	xonly := testXOnlyHex(1)
	tests := []string{
		fmt.Sprintf("tr(%s,{pk(%s)})", xonly, testXOnlyHex(2)),
		fmt.Sprintf("tr(%s,{pk(%s),pk(%s)", xonly, testXOnlyHex(2), testXOnlyHex(3)),
		fmt.Sprintf("tr(%s,abc)", xonly),
		fmt.Sprintf("tr(%s,)", xonly),
	}
	for _, desc := range tests {
		_, err := Parse(desc)
		require.ErrorIs(t, err, ErrSyntax, desc)
	}
}
