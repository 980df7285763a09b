package descriptor

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"outscript.dev/hdkey"
)

// NodeKind is the kind of an AST node.
type NodeKind int

const (
	KindNull NodeKind = iota
	// KindScript is a script-building operator with child nodes.
	KindScript
	// KindKey is a key expression.
	KindKey
	// KindNumber is the required-signature count of multi/sortedmulti.
	KindNumber
)

// ScriptType identifies the script form a node evaluates to.
type ScriptType int

const (
	TypeNull ScriptType = iota
	TypeSh
	TypeWsh
	TypePk
	TypePkh
	TypeWpkh
	TypeCombo
	TypeMulti
	TypeSortedMulti
	TypeAddr
	TypeRaw
	TypeMiniscript
	TypeTaproot
)

func (t ScriptType) String() string {
	switch t {
	case TypeSh:
		return "sh"
	case TypeWsh:
		return "wsh"
	case TypePk:
		return "pk"
	case TypePkh:
		return "pkh"
	case TypeWpkh:
		return "wpkh"
	case TypeCombo:
		return "combo"
	case TypeMulti:
		return "multi"
	case TypeSortedMulti:
		return "sortedmulti"
	case TypeAddr:
		return "addr"
	case TypeRaw:
		return "raw"
	case TypeMiniscript:
		return "miniscript"
	case TypeTaproot:
		return "tr"
	default:
		return "null"
	}
}

// opData describes one entry of the static script operator table.
type opData struct {
	name     string
	typ      ScriptType
	topOnly  bool
	hasChild bool
	multisig bool
}

var opTable = []opData{
	{"sh", TypeSh, true, true, false},
	{"combo", TypeCombo, true, true, false},
	{"wsh", TypeWsh, false, true, false},
	{"pk", TypePk, false, true, false},
	{"pkh", TypePkh, false, true, false},
	{"wpkh", TypeWpkh, false, true, false},
	{"multi", TypeMulti, false, true, true},
	{"sortedmulti", TypeSortedMulti, false, true, true},
	{"addr", TypeAddr, true, false, false},
	{"raw", TypeRaw, true, false, false},
	{"tr", TypeTaproot, true, true, false},
}

func lookupOp(name string) *opData {
	for i := range opTable {
		if opTable[i].name == name {
			return &opTable[i]
		}
	}
	return nil
}

func lookupOpByType(t ScriptType) *opData {
	for i := range opTable {
		if opTable[i].typ == t {
			return &opTable[i]
		}
	}
	return nil
}

// Limits of legacy and witness scripts.
const (
	maxRedeemScriptSize    = 520
	maxMultisigKeys        = 16
	maxWitnessMultisigKeys = 20
)

// Node is one node of a parsed descriptor tree. Nodes are built during
// parse, finished during analysis, and immutable afterwards.
type Node struct {
	kind       NodeKind
	scriptType ScriptType
	name       string
	value      string
	number     int
	depth      int
	parentKind string
	checksum   string

	key        *hdkey.KeyData
	needArgNum int // own wildcard count, excluding children

	children []*Node
	tree     *tapTree // tr script tree, parsed from the second child

	// miniscriptLen is the compiled byte length probed at analysis.
	miniscriptLen int

	params *chaincfg.Params
}

func newNode(params *chaincfg.Params) *Node {
	return &Node{params: params}
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind { return n.kind }

// ScriptType returns the resolved script type of a script node.
func (n *Node) ScriptType() ScriptType { return n.scriptType }

// Name returns the operator name, empty for key and number nodes.
func (n *Node) Name() string { return n.name }

// Value returns the raw text between the operator's parentheses. For
// multisig operators it holds only the final argument, and for tr()
// with a script tree only the tree; use Children. A synthetic
// miniscript node holds its whole expression.
func (n *Node) Value() string { return n.value }

// Children returns the child nodes in argument order.
func (n *Node) Children() []*Node { return n.children }

// Key returns the parsed key expression of a key node, nil otherwise.
func (n *Node) Key() *hdkey.KeyData { return n.key }

// NeedArgumentNum returns the number of wildcard arguments this
// subtree consumes at evaluation time.
func (n *Node) NeedArgumentNum() int {
	num := n.needArgNum
	for _, c := range n.children {
		num += c.NeedArgumentNum()
	}
	return num
}

// String renders the node back to descriptor text without a checksum.
func (n *Node) String() string {
	var b strings.Builder
	n.encode(&b)
	return b.String()
}

func (n *Node) encode(b *strings.Builder) {
	switch {
	case n.name == "" || n.name == "miniscript":
		b.WriteString(n.value)
	case len(n.children) == 0:
		b.WriteString(n.name)
		b.WriteByte('(')
		b.WriteString(n.value)
		b.WriteByte(')')
	default:
		b.WriteString(n.name)
		b.WriteByte('(')
		for i, c := range n.children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.encode(b)
		}
		b.WriteByte(')')
	}
}
