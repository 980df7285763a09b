package descriptor

import (
	"fmt"
	"strconv"
	"strings"
)

// parseExpr splits one operator expression into name, value and child
// nodes by walking the text and tracking parenthesis depth relative to
// this node's starting depth. It is the first of the two passes; the
// children it produces are classified but not yet validated.
func (n *Node) parseExpr(desc string, depth int) error {
	n.depth = depth
	var (
		offset     int
		depthWork  = depth
		terminated bool
		childExpr  bool
		body       string
	)
	log.Tracef("parse depth=%d: %s", depth, desc)

scan:
	for idx := 0; idx < len(desc); idx++ {
		switch desc[idx] {
		case '#':
			if !terminated {
				return fmt.Errorf("%w: '#' before end of expression", ErrChecksumFormat)
			}
			n.checksum = desc[idx+1:]
			body = desc[:idx]
			if strings.Contains(n.checksum, "#") {
				return fmt.Errorf("%w: multiple '#' symbols", ErrChecksumFormat)
			}
			break scan
		case ',':
			switch {
			case childExpr:
				// Consumed by the child expression.
			case n.name == "multi" || n.name == "sortedmulti":
				child := newNode(n.params)
				child.value = desc[offset:idx]
				child.depth = depth + 1
				child.parentKind = n.parentKind
				if len(n.children) == 0 {
					child.kind = KindNumber
					child.number, _ = strconv.Atoi(child.value)
				} else {
					child.kind = KindKey
				}
				n.children = append(n.children, child)
				offset = idx + 1
			case n.name == "tr":
				if len(n.children) == 0 {
					child := newNode(n.params)
					child.kind = KindKey
					child.value = desc[offset:idx]
					child.depth = depth + 1
					child.parentKind = n.parentKind
					n.children = append(n.children, child)
					offset = idx + 1
				}
			default:
				// Leave in place; miniscript operators take
				// comma-separated arguments of their own.
			}
		case ' ':
			offset++
		case '(':
			if depthWork == depth {
				n.name = desc[offset:idx]
				offset = idx + 1
			} else {
				childExpr = true
			}
			depthWork++
		case ')':
			depthWork--
			if depthWork < depth {
				return fmt.Errorf("%w: unbalanced ')'", ErrSyntax)
			}
			if depthWork != depth {
				continue
			}
			n.value = desc[offset:idx]
			terminated = true
			offset = idx + 1
			if n.name == "addr" || n.name == "raw" {
				continue
			}
			child := newNode(n.params)
			child.parentKind = n.parentKind
			switch {
			case n.name == "tr":
				child.kind = KindScript
				child.value = n.value
				child.depth = depth + 1
				childExpr = false
			case childExpr:
				child.kind = KindScript
				if err := child.parseExpr(n.value, depth+1); err != nil {
					return err
				}
				childExpr = false
			default:
				child.kind = KindKey
				child.value = n.value
				child.depth = depth + 1
			}
			n.children = append(n.children, child)
		}
	}

	if depthWork != depth || (n.name != "" && !terminated) {
		return fmt.Errorf("%w: unbalanced parentheses", ErrSyntax)
	}
	switch {
	case n.name == "" || n.name == "addr" || n.name == "raw":
	case len(n.children) == 0:
		return fmt.Errorf("%w: %s() has an empty body", ErrSyntax, n.name)
	}
	if body != "" {
		if err := verifyChecksum(body, n.checksum); err != nil {
			return err
		}
	}
	return nil
}
