// package descriptor implements parsing and evaluation of bitcoin
// output descriptors: a checksummed textual language describing
// locking scripts, as understood by Bitcoin Core.
//
// A descriptor such as
//
//	wsh(multi(2,xpubA.../0/*,xpubB.../0/*))#checksum
//
// parses into a validated tree which evaluates, given one child index
// per wildcard, to locking scripts, addresses, key material and
// structural reflection such as redeem scripts and taproot trees.
package descriptor

import (
	"github.com/btcsuite/btcd/chaincfg"

	"outscript.dev/netparams"
)

// Descriptor is a parsed, validated output descriptor. It is immutable
// and safe for concurrent evaluation.
type Descriptor struct {
	root   *Node
	params *chaincfg.Params
}

// Parse parses and validates a descriptor against the bitcoin mainnet
// prefix table.
func Parse(desc string) (*Descriptor, error) {
	return ParseWithParams(desc, &chaincfg.MainNetParams)
}

// ParseElements parses and validates a descriptor against the
// Elements/Liquid prefix table.
func ParseElements(desc string) (*Descriptor, error) {
	return ParseWithParams(desc, &netparams.Liquid)
}

// ParseWithParams parses and validates a descriptor against the given
// address prefix table. The whole tree is probe-evaluated with dummy
// arguments so that size and key-format violations surface here rather
// than on first use.
func ParseWithParams(desc string, params *chaincfg.Params) (*Descriptor, error) {
	root := newNode(params)
	root.kind = KindScript
	if err := root.parseExpr(desc, 0); err != nil {
		return nil, err
	}
	if err := root.analyzeAll(""); err != nil {
		return nil, err
	}
	probe := make([]string, root.NeedArgumentNum())
	for i := range probe {
		probe[i] = "0"
	}
	if _, err := root.references(&probe, nil); err != nil {
		return nil, err
	}
	log.Debugf("parsed descriptor %s: type=%s args=%d",
		desc, root.scriptType, root.NeedArgumentNum())
	return &Descriptor{root: root, params: params}, nil
}

// Node returns the root of the descriptor tree.
func (d *Descriptor) Node() *Node { return d.root }

// ScriptType returns the script form of the root operator.
func (d *Descriptor) ScriptType() ScriptType { return d.root.scriptType }

// IsCombo reports whether the descriptor is a combo() expression,
// which evaluates to multiple references.
func (d *Descriptor) IsCombo() bool { return d.root.scriptType == TypeCombo }

// NeedArgumentNum returns the number of wildcard arguments an
// evaluation consumes.
func (d *Descriptor) NeedArgumentNum() int { return d.root.NeedArgumentNum() }

// References evaluates the descriptor. Arguments map to wildcards left
// to right; the sentinel ArgBaseExtkey resolves keys to their base
// extended key instead. combo() yields one reference per script form,
// every other descriptor yields exactly one.
func (d *Descriptor) References(args ...string) ([]*ScriptReference, error) {
	buf := append([]string(nil), args...)
	return d.root.references(&buf, nil)
}

// Reference evaluates the descriptor and returns its primary
// reference.
func (d *Descriptor) Reference(args ...string) (*ScriptReference, error) {
	refs, err := d.References(args...)
	if err != nil {
		return nil, err
	}
	return refs[0], nil
}

// LockingScript evaluates the descriptor to its locking script.
func (d *Descriptor) LockingScript(args ...string) ([]byte, error) {
	ref, err := d.Reference(args...)
	if err != nil {
		return nil, err
	}
	return ref.Script, nil
}

// LockingScripts evaluates the descriptor to all of its locking
// scripts; only combo() yields more than one.
func (d *Descriptor) LockingScripts(args ...string) ([][]byte, error) {
	refs, err := d.References(args...)
	if err != nil {
		return nil, err
	}
	scripts := make([][]byte, len(refs))
	for i, ref := range refs {
		scripts[i] = ref.Script
	}
	return scripts, nil
}

// KeyData evaluates the descriptor and returns the resolved keys of
// every reference, flattened over nested scripts.
func (d *Descriptor) KeyData(args ...string) ([]*KeyReference, error) {
	refs, err := d.References(args...)
	if err != nil {
		return nil, err
	}
	var keys []*KeyReference
	for _, ref := range refs {
		for cur := ref; cur != nil; cur = cur.Child {
			keys = append(keys, cur.Keys...)
		}
	}
	return keys, nil
}

// Encode renders the descriptor in canonical form with its checksum.
// A body with characters outside the checksum alphabet is rendered
// without one.
func (d *Descriptor) Encode() string {
	body := d.root.String()
	sum, err := Checksum(body)
	if err != nil {
		return body
	}
	return body + "#" + sum
}

// EncodeCompact renders the descriptor without a checksum.
func (d *Descriptor) EncodeCompact() string {
	return d.root.String()
}

// String implements fmt.Stringer as Encode.
func (d *Descriptor) String() string {
	return d.Encode()
}
