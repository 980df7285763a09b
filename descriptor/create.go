package descriptor

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// KeyInfo is one key of a programmatically constructed descriptor:
// the key text plus optional origin info and child path.
type KeyInfo struct {
	key    string
	origin string // rendered as [origin] before the key
	path   string // rendered after the key, leading slash included
}

// NewKeyInfo uses a key expression verbatim.
func NewKeyInfo(key string) KeyInfo {
	return KeyInfo{key: key}
}

// NewKeyInfoPubkey formats a public key, compressed.
func NewKeyInfoPubkey(pub *btcec.PublicKey) KeyInfo {
	return KeyInfo{key: hex.EncodeToString(pub.SerializeCompressed())}
}

// NewKeyInfoSchnorr formats an x-only public key.
func NewKeyInfoSchnorr(pub *btcec.PublicKey) KeyInfo {
	return KeyInfo{key: hex.EncodeToString(schnorr.SerializePubKey(pub))}
}

// NewKeyInfoWIF formats a WIF private key.
func NewKeyInfoWIF(wif *btcutil.WIF) KeyInfo {
	return KeyInfo{key: wif.String()}
}

// NewKeyInfoExtKey formats an extended key with an optional child
// path such as "0/1" or "0/*".
func NewKeyInfoExtKey(key *hdkeychain.ExtendedKey, path string) KeyInfo {
	return KeyInfo{key: key.String(), path: normalizePath(path)}
}

// WithOrigin attaches origin info, fingerprint first, e.g.
// "d34db33f/84h/0h/0h".
func (k KeyInfo) WithOrigin(origin string) KeyInfo {
	k.origin = origin
	return k
}

// String renders the key expression.
func (k KeyInfo) String() string {
	var b strings.Builder
	if k.origin != "" {
		b.WriteByte('[')
		b.WriteString(k.origin)
		b.WriteByte(']')
	}
	b.WriteString(k.key)
	b.WriteString(k.path)
	return b.String()
}

func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == 'm' || path[0] == 'M' {
		path = path[1:]
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return path
}

// Create forms a single-key descriptor of the given script nesting and
// parses it, so the result obeys every placement rule. Types are
// outermost first, e.g. [TypeSh, TypeWpkh] for sh(wpkh(...)).
func Create(types []ScriptType, key KeyInfo, params *chaincfg.Params) (*Descriptor, error) {
	return CreateMulti(types, []KeyInfo{key}, 1, params)
}

// CreateMulti forms a descriptor from a script nesting, a key list and
// a multisig threshold, then parses it. Key lists of more than one
// entry require a multisig innermost type.
func CreateMulti(types []ScriptType, keys []KeyInfo, requireNum int, params *chaincfg.Params) (*Descriptor, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: empty script type list", ErrSyntax)
	}
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	keyText := make([]string, len(keys))
	for i, k := range keys {
		keyText[i] = k.String()
	}
	var desc string
	for i := len(types) - 1; i >= 0; i-- {
		op := lookupOpByType(types[i])
		if op == nil {
			return nil, fmt.Errorf("%w: script type %s", ErrUnknownOperator, types[i])
		}
		switch types[i] {
		case TypePk, TypePkh, TypeWpkh, TypeCombo, TypeMulti, TypeSortedMulti:
			if desc != "" {
				return nil, fmt.Errorf("%w: %s() must be innermost", ErrInvalidComposition, op.name)
			}
			if len(keys) == 0 {
				return nil, fmt.Errorf("%w: key list is empty", ErrSyntax)
			}
			if !op.multisig && len(keys) > 1 {
				return nil, fmt.Errorf("%w: multiple keys fit multisig only", ErrInvalidComposition)
			}
		case TypeSh, TypeWsh:
			if desc == "" {
				return nil, fmt.Errorf("%w: %s() wraps a script expression", ErrInvalidComposition, op.name)
			}
		default:
			return nil, fmt.Errorf("%w: script type %s", ErrUnknownOperator, types[i])
		}
		switch {
		case desc != "":
			desc = op.name + "(" + desc + ")"
		case op.multisig:
			desc = op.name + "(" + strconv.Itoa(requireNum) + "," + strings.Join(keyText, ",") + ")"
		default:
			desc = op.name + "(" + strings.Join(keyText, ",") + ")"
		}
	}
	return ParseWithParams(desc, params)
}
