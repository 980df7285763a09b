package descriptor

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"outscript.dev/hdkey"
	"outscript.dev/miniscript"
)

// analyzeAll validates the just-parsed subtree rooted at n against the
// operator table and its placement rules, resolves key expressions,
// and rewrites unrecognized operators under wsh/sh/tr into synthetic
// miniscript nodes.
func (n *Node) analyzeAll(parentName string) error {
	switch n.kind {
	case KindNumber:
		return nil
	case KindKey:
		return n.analyzeKey()
	}
	if n.name == "" {
		return fmt.Errorf("%w: operator name is empty", ErrSyntax)
	}

	op := lookupOp(n.name)
	if op == nil {
		return n.analyzeMiniscript(parentName)
	}

	if op.topOnly && n.depth != 0 {
		return fmt.Errorf("%w: %s() is valid at the top level only", ErrInvalidComposition, n.name)
	}
	if op.hasChild {
		if len(n.children) == 0 {
			return fmt.Errorf("%w: %s() has an empty body", ErrSyntax, n.name)
		}
	} else if len(n.children) != 0 {
		return fmt.Errorf("%w: %s() takes no expressions", ErrSyntax, n.name)
	}

	switch {
	case op.multisig:
		if err := n.analyzeMultisig(parentName); err != nil {
			return err
		}
	case n.name == "addr":
		if _, err := btcutil.DecodeAddress(n.value, n.params); err != nil {
			return fmt.Errorf("%w: addr(%s): %v", ErrSyntax, n.value, err)
		}
	case n.name == "raw":
		if _, err := hex.DecodeString(n.value); err != nil {
			return fmt.Errorf("%w: raw(%s): %v", ErrSyntax, n.value, err)
		}
	case n.name == "tr":
		if err := n.analyzeTaproot(); err != nil {
			return err
		}
	default:
		if err := n.analyzeWrapped(parentName); err != nil {
			return err
		}
	}
	n.scriptType = op.typ
	return nil
}

// analyzeMiniscript hands an unrecognized operator to the external
// miniscript compiler, rewriting the node on success.
func (n *Node) analyzeMiniscript(parentName string) error {
	if parentName != "wsh" && parentName != "sh" && parentName != "tr" {
		return fmt.Errorf("%w: %s", ErrUnknownOperator, n.name)
	}
	script := n.name + "(" + n.value + ")"
	flags := miniscript.WitnessScript
	if parentName == "tr" {
		flags = miniscript.Tapscript
	}
	compiled, err := miniscript.Compile(script, 0, flags)
	if err != nil {
		log.Debugf("miniscript rejected %q: %v", script, err)
		return fmt.Errorf("%w: %s", ErrUnknownOperator, n.name)
	}
	if parentName == "sh" && len(compiled)+3 > maxRedeemScriptSize {
		return fmt.Errorf("%w: redeem script is %d bytes", ErrSizeExceeded, len(compiled))
	}
	n.scriptType = TypeMiniscript
	n.value = script
	n.name = "miniscript"
	n.miniscriptLen = len(compiled)
	n.needArgNum = 0
	if strings.Contains(script, "*") {
		n.needArgNum = 1
	}
	n.children = nil
	return nil
}

func (n *Node) analyzeKey() error {
	key, err := hdkey.Parse(n.value, n.parentKind == "tr")
	if err != nil {
		if errors.Is(err, hdkey.ErrBadPath) {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return err
	}
	n.key = key
	if key.HasWildcard() {
		n.needArgNum = 1
	}
	log.Tracef("key %s: type=%s args=%d", n.value, key.Type(), n.needArgNum)
	return nil
}

func (n *Node) analyzeMultisig(parentName string) error {
	if n.parentKind == "tr" {
		return fmt.Errorf("%w: multisig is not valid under tr()", ErrInvalidComposition)
	}
	if len(n.children) < 2 {
		return fmt.Errorf("%w: %s() needs a threshold and at least one key", ErrSyntax, n.name)
	}
	threshold := n.children[0].value
	for i := 0; i < len(threshold); i++ {
		if threshold[i] < '0' || threshold[i] > '9' {
			return fmt.Errorf("%w: threshold %q is not a number", ErrArgumentMalformed, threshold)
		}
	}
	if threshold == "" {
		return fmt.Errorf("%w: threshold %q is not a number", ErrArgumentMalformed, threshold)
	}
	keyNum := len(n.children) - 1
	if n.children[0].number == 0 || keyNum < n.children[0].number {
		return fmt.Errorf("%w: %d-of-%d multisig", ErrSizeExceeded, n.children[0].number, keyNum)
	}
	maxKeys := maxMultisigKeys
	if parentName == "wsh" {
		maxKeys = maxWitnessMultisigKeys
	}
	if keyNum > maxKeys {
		return fmt.Errorf("%w: %d multisig keys, at most %d", ErrSizeExceeded, keyNum, maxKeys)
	}
	for _, c := range n.children {
		if err := c.analyzeAll(n.name); err != nil {
			return err
		}
	}
	switch parentName {
	case "sh":
		// Probe-build the redeem script to enforce the P2SH size
		// bound up front; evaluation is pure, so this has no side
		// effects.
		n.scriptType = lookupOp(n.name).typ
		ref, err := n.reference(nil, n)
		if err != nil {
			return err
		}
		if len(ref.Script)+3 > maxRedeemScriptSize {
			return fmt.Errorf("%w: redeem script is %d bytes", ErrSizeExceeded, len(ref.Script))
		}
	case "wsh":
		for _, c := range n.children {
			if c.kind == KindNumber {
				continue
			}
			d, err := c.key.Derive("0")
			if err != nil {
				return err
			}
			if d.Uncompressed {
				return fmt.Errorf("%w: multisig under wsh()", ErrUncompressedInWitness)
			}
		}
	}
	return nil
}

func (n *Node) analyzeTaproot() error {
	if len(n.children) != 1 && len(n.children) != 2 {
		return fmt.Errorf("%w: tr() takes a key and an optional script tree", ErrSyntax)
	}
	n.children[0].kind = KindKey
	n.children[0].parentKind = "tr"
	if err := n.children[0].analyzeAll(n.name); err != nil {
		return err
	}
	d, err := n.children[0].key.Derive("0")
	if err != nil {
		return err
	}
	if d.Uncompressed {
		return fmt.Errorf("%w: tr() internal key", ErrUncompressedInWitness)
	}
	if len(n.children) == 2 {
		n.children[1].parentKind = "tr"
		if err := n.children[1].analyzeScriptTree(); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) analyzeWrapped(parentName string) error {
	if len(n.children) != 1 {
		return fmt.Errorf("%w: %s() takes a single expression", ErrSyntax, n.name)
	}
	child := n.children[0]
	switch {
	case (n.name == "wsh" || n.name == "wpkh") && parentName != "" && parentName != "sh":
		return fmt.Errorf("%w: %s() under %s(), only top level or sh()", ErrInvalidComposition, n.name, parentName)
	case (n.name == "wsh" || n.name == "sh") && child.kind != KindScript:
		return fmt.Errorf("%w: %s() wraps a script expression", ErrInvalidComposition, n.name)
	case n.name != "wsh" && n.name != "sh" && child.kind != KindKey:
		return fmt.Errorf("%w: %s() takes a key expression", ErrInvalidComposition, n.name)
	case parentName == "tr" && n.name == "pkh":
		return fmt.Errorf("%w: pkh() is not valid under tr()", ErrInvalidComposition)
	}
	child.parentKind = n.parentKind
	if err := child.analyzeAll(n.name); err != nil {
		return err
	}
	if n.name == "wpkh" || n.name == "wsh" {
		if n.hasUncompressedKey() {
			return fmt.Errorf("%w: %s()", ErrUncompressedInWitness, n.name)
		}
	}
	return nil
}

func (n *Node) hasUncompressedKey() bool {
	if n.key != nil && n.key.IsUncompressed() {
		return true
	}
	for _, c := range n.children {
		if c.hasUncompressedKey() {
			return true
		}
	}
	return false
}
