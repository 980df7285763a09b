package descriptor

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"outscript.dev/miniscript"
)

// stubCompiler accepts everything and emits OP_TRUE, recording its
// inputs.
type stubCompiler struct {
	calls []stubCall
}

type stubCall struct {
	script   string
	childNum uint32
	flags    miniscript.Flags
}

func (s *stubCompiler) compile(script string, childNum uint32, flags miniscript.Flags) ([]byte, error) {
	s.calls = append(s.calls, stubCall{script, childNum, flags})
	return []byte{txscript.OP_TRUE}, nil
}

func withStubCompiler(t *testing.T) *stubCompiler {
	t.Helper()
	stub := &stubCompiler{}
	miniscript.SetCompiler(stub.compile)
	t.Cleanup(func() { miniscript.SetCompiler(nil) })
	return stub
}

func TestMiniscriptUnderWsh(t *testing.T) {
	stub := withStubCompiler(t)
	pub := testPubHex(1)
	desc := fmt.Sprintf("wsh(and_v(v:pk(%s),older(144)))", pub)

	d, err := Parse(desc)
	require.NoError(t, err)
	require.Equal(t, 0, d.NeedArgumentNum())
	require.NotEmpty(t, stub.calls)
	require.Equal(t, fmt.Sprintf("and_v(v:pk(%s),older(144))", pub), stub.calls[0].script)
	require.Equal(t, miniscript.WitnessScript, stub.calls[0].flags)

	ref, err := d.Reference()
	require.NoError(t, err)
	require.Equal(t, TypeWsh, ref.Type)
	require.Equal(t, []byte{txscript.OP_TRUE}, ref.RedeemScript)
	require.Equal(t, TypeMiniscript, ref.Child.Type)
	require.Equal(t, desc, d.EncodeCompact())
}

func TestMiniscriptChildNumber(t *testing.T) {
	stub := withStubCompiler(t)
	xpub := testXpub(t, 1)
	desc := fmt.Sprintf("wsh(and_v(v:pk(%s/0/*),older(144)))", xpub)

	d, err := Parse(desc)
	require.NoError(t, err)
	require.Equal(t, 1, d.NeedArgumentNum())

	_, err = d.Reference("12")
	require.NoError(t, err)
	last := stub.calls[len(stub.calls)-1]
	require.Equal(t, uint32(12), last.childNum)

	_, err = d.Reference("0/1")
	require.ErrorIs(t, err, ErrArgumentMalformed)

	_, err = d.Reference()
	require.ErrorIs(t, err, ErrArgumentMissing)
}

func TestMiniscriptUnderTaproot(t *testing.T) {
	stub := withStubCompiler(t)
	desc := fmt.Sprintf("tr(%s,{pk(%s),and_v(v:pk(%s),older(10))})",
		testXOnlyHex(1), testXOnlyHex(2), testXOnlyHex(3))

	d, err := Parse(desc)
	require.NoError(t, err)

	ref, err := d.Reference()
	require.NoError(t, err)
	require.Len(t, ref.TapLeaves, 2)
	require.Equal(t, []byte{txscript.OP_TRUE}, ref.TapLeaves[1].Script)

	var sawTapscript bool
	for _, c := range stub.calls {
		if c.flags == miniscript.Tapscript {
			sawTapscript = true
		}
	}
	require.True(t, sawTapscript)
}

func TestMiniscriptRejectedWithoutCompiler(t *testing.T) {
	pub := testPubHex(1)
	_, err := Parse(fmt.Sprintf("wsh(and_v(v:pk(%s),older(144)))", pub))
	require.ErrorIs(t, err, ErrUnknownOperator)
}
