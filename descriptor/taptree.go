package descriptor

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// tapTree is the parsed form of the script tree inside tr()'s second
// argument. Interior nodes come from {left,right} brace pairs; leaves
// are script expressions, tl(hex) literals, or bare keys standing in
// for their 32-byte x-only serialization.
type tapTree struct {
	text  string
	left  *tapTree
	right *tapTree

	script *Node  // script expression leaf
	keyed  *Node  // key leaf, hashed as its x-only bytes
	raw    []byte // tl(hex) leaf script
}

// analyzeScriptTree parses and validates the tree text held in n.value.
// Script and key leaves are appended to n.children in left-to-right
// order so that wildcard accounting counts them; evaluation walks the
// parsed tree itself, in the same order.
func (n *Node) analyzeScriptTree() error {
	tree, err := n.parseTapTree(strings.TrimSpace(n.value))
	if err != nil {
		return err
	}
	n.tree = tree
	return nil
}

func (n *Node) parseTapTree(s string) (*tapTree, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty taproot script tree", ErrSyntax)
	}
	t := &tapTree{text: s}
	if s[0] == '{' {
		if s[len(s)-1] != '}' {
			return nil, fmt.Errorf("%w: unbalanced '{' in script tree", ErrSyntax)
		}
		leftText, rightText, err := splitTreeBranch(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		if t.left, err = n.parseTapTree(leftText); err != nil {
			return nil, err
		}
		if t.right, err = n.parseTapTree(rightText); err != nil {
			return nil, err
		}
		return t, nil
	}
	if open := strings.IndexByte(s, '('); open > 0 {
		if s[len(s)-1] != ')' {
			return nil, fmt.Errorf("%w: unbalanced '(' in script tree", ErrSyntax)
		}
		if s[:open] == "tl" {
			raw, err := hex.DecodeString(s[open+1 : len(s)-1])
			if err != nil {
				return nil, fmt.Errorf("%w: tl() script: %v", ErrSyntax, err)
			}
			t.raw = raw
			return t, nil
		}
		leaf := newNode(n.params)
		leaf.kind = KindScript
		leaf.parentKind = "tr"
		if err := leaf.parseExpr(s, n.depth+1); err != nil {
			return nil, err
		}
		if err := leaf.analyzeAll("tr"); err != nil {
			return nil, err
		}
		t.script = leaf
		n.children = append(n.children, leaf)
		return t, nil
	}
	if len(s) >= chainhash.HashSize*2 {
		leaf := newNode(n.params)
		leaf.kind = KindKey
		leaf.value = s
		leaf.depth = n.depth + 1
		leaf.parentKind = "tr"
		if err := leaf.analyzeAll("tr"); err != nil {
			return nil, err
		}
		t.keyed = leaf
		n.children = append(n.children, leaf)
		return t, nil
	}
	return nil, fmt.Errorf("%w: invalid script tree leaf %q", ErrSyntax, s)
}

// splitTreeBranch splits the interior of a {left,right} pair at its
// single top-level comma, honoring nested braces and parentheses.
func splitTreeBranch(s string) (string, string, error) {
	braces, parens := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		case ',':
			if braces == 0 && parens == 0 {
				return s[:i], s[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: script tree branch needs two subtrees", ErrSyntax)
}

// TapLeafRef describes one tapscript leaf of an evaluated tr() tree,
// with enough material to assemble its BIP341 control block.
type TapLeafRef struct {
	// Script is the tapleaf script.
	Script []byte
	// LeafHash is the tagged leaf hash.
	LeafHash chainhash.Hash
	// InclusionProof is the concatenation of the sibling hashes from
	// the leaf to the merkle root.
	InclusionProof []byte
}

// tapEval is the result of resolving a script tree against the
// argument vector.
type tapEval struct {
	hash    chainhash.Hash
	leaves  []TapLeafRef
	hasLeaf bool
}

// hashNode adapts a fixed hash to txscript's TapNode so subtree hashes
// combine through the library's tagged branch hashing.
type hashNode chainhash.Hash

func (h hashNode) TapHash() chainhash.Hash { return chainhash.Hash(h) }
func (h hashNode) Left() txscript.TapNode  { return nil }
func (h hashNode) Right() txscript.TapNode { return nil }

func (t *tapTree) eval(args *[]string) (*tapEval, error) {
	switch {
	case t.script != nil:
		ref, err := t.script.reference(args, nil)
		if err != nil {
			return nil, err
		}
		script := ref.Script
		if len(ref.RedeemScript) > 0 {
			script = ref.RedeemScript
		}
		return newLeafEval(script), nil
	case t.raw != nil:
		return newLeafEval(t.raw), nil
	case t.keyed != nil:
		ref, err := t.keyed.keyReference(args)
		if err != nil {
			return nil, err
		}
		var h chainhash.Hash
		copy(h[:], ref.XOnly)
		return &tapEval{hash: h}, nil
	}
	left, err := t.left.eval(args)
	if err != nil {
		return nil, err
	}
	right, err := t.right.eval(args)
	if err != nil {
		return nil, err
	}
	branch := txscript.NewTapBranch(hashNode(left.hash), hashNode(right.hash))
	res := &tapEval{
		hash:    branch.TapHash(),
		hasLeaf: left.hasLeaf || right.hasLeaf,
	}
	for _, leaf := range left.leaves {
		leaf.InclusionProof = append(leaf.InclusionProof, right.hash[:]...)
		res.leaves = append(res.leaves, leaf)
	}
	for _, leaf := range right.leaves {
		leaf.InclusionProof = append(leaf.InclusionProof, left.hash[:]...)
		res.leaves = append(res.leaves, leaf)
	}
	return res, nil
}

func newLeafEval(script []byte) *tapEval {
	leaf := txscript.NewBaseTapLeaf(script)
	return &tapEval{
		hash:    leaf.TapHash(),
		hasLeaf: true,
		leaves: []TapLeafRef{{
			Script:   script,
			LeafHash: leaf.TapHash(),
		}},
	}
}
