package descriptor

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"outscript.dev/hdkey"
	"outscript.dev/miniscript"
)

// ArgBaseExtkey is the sentinel derivation argument that resolves
// extended keys to their undecorated base instead of deriving a child.
const ArgBaseExtkey = "base"

// KeyReference is the resolved form of one key expression.
type KeyReference struct {
	// Type is the key expression classification.
	Type hdkey.KeyType
	// Pub is the resolved public key.
	Pub *btcec.PublicKey
	// XOnly is the BIP340 32-byte serialization of Pub.
	XOnly []byte
	// Serialized is the public key in its written form, compressed or
	// uncompressed.
	Serialized []byte
	// ExtKey is the resolved extended key, nil for raw keys.
	ExtKey *hdkeychain.ExtendedKey
	// Argument is the wildcard argument consumed by this key, if any.
	Argument string
	// Data is the parsed key expression this reference resolved from.
	Data *hdkey.KeyData
}

// ScriptReference is the evaluated form of one script node: the
// locking script plus the material it was assembled from.
type ScriptReference struct {
	// Type is the script form this reference was built by.
	Type ScriptType
	// Script is the locking script.
	Script []byte
	// RedeemScript is the inner script of sh()/wsh() and of the
	// P2SH-P2WPKH form of combo(), empty otherwise.
	RedeemScript []byte
	// Child is the reference of the wrapped inner expression, nil for
	// leaf forms.
	Child *ScriptReference
	// Keys are the resolved keys in descriptor order.
	Keys []*KeyReference
	// ReqNum is the multisig signature threshold, zero otherwise.
	ReqNum int
	// Addr is the parsed address of an addr() descriptor.
	Addr btcutil.Address
	// InternalKey is the taproot internal key.
	InternalKey *btcec.PublicKey
	// OutputKey is the tweaked taproot output key.
	OutputKey *btcec.PublicKey
	// TapRootHash is the merkle root of the script tree, nil for a
	// key-only tr().
	TapRootHash *chainhash.Hash
	// TapLeaves are the script leaves of the tree in left-to-right
	// order.
	TapLeaves []TapLeafRef

	params *chaincfg.Params
}

// ControlBlock assembles the BIP341 control block that spends the i-th
// tapscript leaf.
func (r *ScriptReference) ControlBlock(i int) (*txscript.ControlBlock, error) {
	if r.Type != TypeTaproot || i < 0 || i >= len(r.TapLeaves) {
		return nil, fmt.Errorf("%w: no tapscript leaf %d", ErrNoAddress, i)
	}
	return &txscript.ControlBlock{
		InternalKey:     r.InternalKey,
		OutputKeyYIsOdd: r.OutputKey.SerializeCompressed()[0] == 0x03,
		LeafVersion:     txscript.BaseLeafVersion,
		InclusionProof:  r.TapLeaves[i].InclusionProof,
	}, nil
}

// HasReqNum reports whether the reference carries a multisig
// threshold.
func (r *ScriptReference) HasReqNum() bool {
	return (r.Type == TypeMulti || r.Type == TypeSortedMulti) && r.ReqNum > 0
}

// references evaluates the node, consuming wildcard arguments from the
// back of args. At the root the caller-supplied order is reversed once
// so arguments read left to right. A nil args probes with "0".
func (n *Node) references(args *[]string, parent *Node) ([]*ScriptReference, error) {
	if n.depth == 0 && args != nil && len(*args) > 1 {
		for i, j := 0, len(*args)-1; i < j; i, j = i+1, j-1 {
			(*args)[i], (*args)[j] = (*args)[j], (*args)[i]
		}
	}
	if n.kind != KindScript {
		return nil, fmt.Errorf("%w: not a script expression", ErrSyntax)
	}

	switch n.scriptType {
	case TypeMiniscript:
		return n.miniscriptReferences(args)
	case TypeRaw:
		script, err := hex.DecodeString(n.value)
		if err != nil {
			return nil, fmt.Errorf("%w: raw(%s)", ErrSyntax, n.value)
		}
		return []*ScriptReference{{Type: n.scriptType, Script: script, params: n.params}}, nil
	case TypeAddr:
		addr, err := btcutil.DecodeAddress(n.value, n.params)
		if err != nil {
			return nil, fmt.Errorf("%w: addr(%s): %v", ErrSyntax, n.value, err)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, err
		}
		return []*ScriptReference{{Type: n.scriptType, Script: script, Addr: addr, params: n.params}}, nil
	case TypeMulti, TypeSortedMulti:
		return n.multisigReferences(args, parent)
	case TypeSh, TypeWsh:
		return n.scriptHashReferences(args)
	case TypeTaproot:
		return n.taprootReferences(args)
	case TypeCombo:
		return n.comboReferences(args)
	default:
		return n.keyScriptReferences(args, parent)
	}
}

// reference evaluates the node and returns its primary reference.
func (n *Node) reference(args *[]string, parent *Node) (*ScriptReference, error) {
	refs, err := n.references(args, parent)
	if err != nil {
		return nil, err
	}
	return refs[0], nil
}

func (n *Node) miniscriptReferences(args *[]string) ([]*ScriptReference, error) {
	var childNum uint32
	switch {
	case n.needArgNum == 0:
	case args == nil:
		// Probe evaluation, child index zero.
	case len(*args) == 0:
		return nil, fmt.Errorf("%w: miniscript wildcard", ErrArgumentMissing)
	case (*args)[0] == ArgBaseExtkey:
	default:
		arg := (*args)[len(*args)-1]
		*args = (*args)[:len(*args)-1]
		if strings.Contains(arg, "/") {
			return nil, fmt.Errorf("%w: miniscript takes a single child number, got %q", ErrArgumentMalformed, arg)
		}
		num, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: child number %q", ErrArgumentMalformed, arg)
		}
		childNum = uint32(num)
	}
	flags := miniscript.WitnessScript
	if n.parentKind == "tr" {
		flags = miniscript.Tapscript
	}
	script, err := miniscript.Compile(n.value, childNum, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownOperator, err)
	}
	return []*ScriptReference{{Type: n.scriptType, Script: script, params: n.params}}, nil
}

func (n *Node) multisigReferences(args *[]string, parent *Node) ([]*ScriptReference, error) {
	reqNum := n.children[0].number
	keys := make([]*KeyReference, 0, len(n.children)-1)
	serialized := make([][]byte, 0, len(n.children)-1)
	for _, c := range n.children[1:] {
		ref, err := c.keyReference(args)
		if err != nil {
			return nil, err
		}
		keys = append(keys, ref)
		serialized = append(serialized, ref.Serialized)
	}
	if n.scriptType == TypeSortedMulti {
		sort.SliceStable(serialized, func(i, j int) bool {
			return bytes.Compare(serialized[i], serialized[j]) > 0
		})
	}
	addrs := make([]*btcutil.AddressPubKey, len(serialized))
	for i, ser := range serialized {
		addr, err := btcutil.NewAddressPubKey(ser, n.params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		addrs[i] = addr
	}
	script, err := txscript.MultiSigScript(addrs, reqNum)
	if err != nil {
		return nil, err
	}
	return []*ScriptReference{{
		Type:   n.scriptType,
		Script: script,
		Keys:   keys,
		ReqNum: reqNum,
		params: n.params,
	}}, nil
}

func (n *Node) scriptHashReferences(args *[]string) ([]*ScriptReference, error) {
	inner, err := n.children[0].reference(args, n)
	if err != nil {
		return nil, err
	}
	var script []byte
	if n.scriptType == TypeWsh {
		script, err = p2wshScript(inner.Script, n.params)
	} else {
		script, err = p2shScript(inner.Script, n.params)
	}
	if err != nil {
		return nil, err
	}
	return []*ScriptReference{{
		Type:         n.scriptType,
		Script:       script,
		RedeemScript: inner.Script,
		Child:        inner,
		params:       n.params,
	}}, nil
}

func (n *Node) taprootReferences(args *[]string) ([]*ScriptReference, error) {
	keyRef, err := n.children[0].keyReference(args)
	if err != nil {
		return nil, err
	}
	internal, err := schnorr.ParsePubKey(keyRef.XOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ref := &ScriptReference{
		Type:        n.scriptType,
		Keys:        []*KeyReference{keyRef},
		InternalKey: internal,
		params:      n.params,
	}
	if len(n.children) >= 2 && n.children[1].tree != nil {
		ev, err := n.children[1].tree.eval(args)
		if err != nil {
			return nil, err
		}
		root := ev.hash
		ref.TapRootHash = &root
		ref.TapLeaves = ev.leaves
		ref.OutputKey = txscript.ComputeTaprootOutputKey(internal, root[:])
	} else {
		// Key-spend only output per BIP86.
		ref.OutputKey = txscript.ComputeTaprootKeyNoScript(internal)
	}
	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(ref.OutputKey), n.params)
	if err != nil {
		return nil, err
	}
	if ref.Script, err = txscript.PayToAddrScript(addr); err != nil {
		return nil, err
	}
	return []*ScriptReference{ref}, nil
}

func (n *Node) comboReferences(args *[]string) ([]*ScriptReference, error) {
	keyRef, err := n.children[0].keyReference(args)
	if err != nil {
		return nil, err
	}
	keys := []*KeyReference{keyRef}
	format := keyFormat(keyRef)
	var result []*ScriptReference
	compressed := len(keyRef.Serialized) == btcec.PubKeyBytesLenCompressed
	if compressed {
		var wpkh []byte
		if format != hdkey.FormatBip49 {
			if wpkh, err = p2wpkhScript(keyRef.Serialized, n.params); err != nil {
				return nil, err
			}
			result = append(result, &ScriptReference{
				Type: n.scriptType, Script: wpkh, Keys: keys, params: n.params,
			})
		}
		if format != hdkey.FormatBip84 {
			if wpkh == nil {
				if wpkh, err = p2wpkhScript(keyRef.Serialized, n.params); err != nil {
					return nil, err
				}
			}
			nested, err := p2shScript(wpkh, n.params)
			if err != nil {
				return nil, err
			}
			child := &ScriptReference{Type: TypeWpkh, Script: wpkh, Keys: keys, params: n.params}
			result = append(result, &ScriptReference{
				Type:         n.scriptType,
				Script:       nested,
				RedeemScript: wpkh,
				Child:        child,
				params:       n.params,
			})
		}
	}
	if format == hdkey.FormatNormal {
		pkh, err := p2pkhScript(keyRef.Serialized, n.params)
		if err != nil {
			return nil, err
		}
		result = append(result, &ScriptReference{
			Type: n.scriptType, Script: pkh, Keys: keys, params: n.params,
		})
		pk, err := p2pkScript(keyRef.Serialized)
		if err != nil {
			return nil, err
		}
		result = append(result, &ScriptReference{
			Type: n.scriptType, Script: pk, Keys: keys, params: n.params,
		})
	}
	return result, nil
}

func (n *Node) keyScriptReferences(args *[]string, parent *Node) ([]*ScriptReference, error) {
	keyRef, err := n.children[0].keyReference(args)
	if err != nil {
		return nil, err
	}
	format := keyFormat(keyRef)
	var script []byte
	switch n.scriptType {
	case TypePkh:
		if format != hdkey.FormatNormal {
			return nil, fmt.Errorf("%w: pkh() takes a plain xpub", ErrBipFormatMismatch)
		}
		script, err = p2pkhScript(keyRef.Serialized, n.params)
	case TypeWpkh:
		underSh := parent != nil && parent.scriptType == TypeSh
		if format == hdkey.FormatBip49 && !underSh {
			return nil, fmt.Errorf("%w: bip49 keys fit sh(wpkh()) only", ErrBipFormatMismatch)
		}
		if format == hdkey.FormatBip84 && parent != nil {
			return nil, fmt.Errorf("%w: bip84 keys fit top-level wpkh() only", ErrBipFormatMismatch)
		}
		script, err = p2wpkhScript(keyRef.Serialized, n.params)
	case TypePk:
		if format != hdkey.FormatNormal {
			return nil, fmt.Errorf("%w: pk() takes a plain xpub", ErrBipFormatMismatch)
		}
		if n.parentKind == "tr" {
			script, err = p2pkScript(keyRef.XOnly)
		} else {
			script, err = p2pkScript(keyRef.Serialized)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, n.name)
	}
	if err != nil {
		return nil, err
	}
	return []*ScriptReference{{
		Type:   n.scriptType,
		Script: script,
		Keys:   []*KeyReference{keyRef},
		params: n.params,
	}}, nil
}

// keyReference resolves a key node, consuming one wildcard argument
// when the key carries a wildcard. A nil args probes with "0".
func (n *Node) keyReference(args *[]string) (*KeyReference, error) {
	k := n.key
	switch k.Type() {
	case hdkey.TypePublic, hdkey.TypeSchnorr:
		d, err := k.Derive("")
		if err != nil {
			return nil, err
		}
		return newKeyReference(k, d, ""), nil
	}
	var (
		argVal  string
		useBase bool
	)
	switch {
	case n.needArgNum == 0:
	case args == nil:
		argVal = "0"
	case len(*args) == 0:
		return nil, fmt.Errorf("%w: %s", ErrArgumentMissing, k.String())
	case (*args)[0] == ArgBaseExtkey:
		useBase = true
	default:
		argVal = (*args)[len(*args)-1]
		*args = (*args)[:len(*args)-1]
	}
	var (
		d   *hdkey.Derived
		err error
	)
	if useBase {
		d, err = k.DeriveBase()
	} else {
		d, err = k.Derive(argVal)
	}
	if err != nil {
		if errors.Is(err, hdkey.ErrBadPath) {
			return nil, fmt.Errorf("%w: %v", ErrArgumentMalformed, err)
		}
		return nil, err
	}
	return newKeyReference(k, d, argVal), nil
}

func newKeyReference(k *hdkey.KeyData, d *hdkey.Derived, arg string) *KeyReference {
	return &KeyReference{
		Type:       k.Type(),
		Pub:        d.Pub,
		XOnly:      d.XOnly(),
		Serialized: d.SerializedPub(),
		ExtKey:     d.Key,
		Argument:   arg,
		Data:       k,
	}
}

func keyFormat(ref *KeyReference) hdkey.FormatType {
	if ref.Data != nil {
		return ref.Data.Format()
	}
	return hdkey.FormatNormal
}

// Locking script builders over the standard address forms.

func p2pkhScript(serializedPub []byte, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(serializedPub), params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

func p2wpkhScript(serializedPub []byte, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(serializedPub), params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

func p2shScript(redeem []byte, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.NewAddressScriptHash(redeem, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

func p2wshScript(witness []byte, params *chaincfg.Params) ([]byte, error) {
	hash := sha256.Sum256(witness)
	addr, err := btcutil.NewAddressWitnessScriptHash(hash[:], params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

func p2pkScript(serializedPub []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(serializedPub).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}
