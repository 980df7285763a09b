// package hdkey parses the key expressions found in output descriptors:
// raw public keys, x-only (BIP340) public keys, WIF private keys, and
// BIP32 extended keys with origin information, derivation paths and a
// trailing wildcard.
package hdkey

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	// ErrInvalidKey reports a token that is neither a public key,
	// an x-only key, a WIF private key nor an extended key.
	ErrInvalidKey = errors.New("hdkey: invalid key")
	// ErrWildcardMisuse reports a wildcard in a non-terminal path
	// position, or a hardened wildcard on an extended public key.
	ErrWildcardMisuse = errors.New("hdkey: misplaced wildcard")
	// ErrBadPath reports a malformed derivation path element.
	ErrBadPath = errors.New("hdkey: invalid derivation path")
)

// KeyType classifies a parsed key expression.
type KeyType int

const (
	TypeNull KeyType = iota
	// TypePublic is a raw compressed or uncompressed public key,
	// or a WIF-encoded private key.
	TypePublic
	// TypeSchnorr is a 32-byte x-only public key, valid under tr().
	TypeSchnorr
	// TypeBip32Pub is a BIP32 extended public key.
	TypeBip32Pub
	// TypeBip32Priv is a BIP32 extended private key.
	TypeBip32Priv
)

func (t KeyType) String() string {
	switch t {
	case TypePublic:
		return "pubkey"
	case TypeSchnorr:
		return "xonly-pubkey"
	case TypeBip32Pub:
		return "extpubkey"
	case TypeBip32Priv:
		return "extprivkey"
	default:
		return "null"
	}
}

// KeyData is a parsed key expression. Extended keys are pre-derived
// through the fixed (non-wildcard) portion of their path at parse time;
// the undecorated base key is retained so callers can still address it
// directly.
type KeyData struct {
	typ    KeyType
	value  string // original text, including origin info
	origin string // content between the origin brackets, without them

	// Raw pubkey / WIF fields.
	pub          *secp256k1.PublicKey
	uncompressed bool
	wif          *btcutil.WIF

	// Extended key fields.
	base      *hdkeychain.ExtendedKey // as written, before any derivation
	derived   *hdkeychain.ExtendedKey // base derived through fixedPath
	fixedPath []uint32
	format    FormatType

	wildcard         bool
	hardenedWildcard bool
}

// Derived is the result of resolving a key expression, optionally
// through a wildcard argument.
type Derived struct {
	// Key is the resolved extended key, nil for raw keys.
	Key *hdkeychain.ExtendedKey
	// Pub is the resolved public key.
	Pub *secp256k1.PublicKey
	// Uncompressed reports whether the key serializes uncompressed.
	Uncompressed bool
}

// XOnly returns the BIP340 32-byte serialization of the resolved key.
func (d *Derived) XOnly() []byte {
	return schnorr.SerializePubKey(d.Pub)
}

// SerializedPub returns the public key in its written form: compressed
// unless the source key was uncompressed.
func (d *Derived) SerializedPub() []byte {
	if d.Uncompressed {
		return d.Pub.SerializeUncompressed()
	}
	return d.Pub.SerializeCompressed()
}

// Parse parses a key expression. underTaproot selects the tr() key
// rules: 32-byte x-only keys are accepted and 33/65-byte keys are
// rejected.
func Parse(value string, underTaproot bool) (*KeyData, error) {
	k := &KeyData{typ: TypePublic, value: value}
	rem := value
	if len(rem) > 0 && rem[0] == '[' {
		end := strings.IndexByte(rem, ']')
		if end == -1 {
			return nil, fmt.Errorf("%w: missing ']': %q", ErrInvalidKey, value)
		}
		k.origin = rem[1:end]
		if err := checkOrigin(k.origin); err != nil {
			return nil, err
		}
		rem = rem[end+1:]
	}
	if len(rem) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if len(rem) > 4 {
		switch rem[1:4] {
		case "pub", "prv":
			if rem[1:4] == "prv" {
				k.typ = TypeBip32Priv
			} else {
				k.typ = TypeBip32Pub
			}
			if err := k.parseExtended(rem); err != nil {
				return nil, err
			}
			return k, nil
		}
	}
	if raw, err := hex.DecodeString(rem); err == nil {
		switch {
		case underTaproot && len(raw) == schnorr.PubKeyBytesLen:
			pub, err := schnorr.ParsePubKey(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			k.typ = TypeSchnorr
			k.pub = pub
			return k, nil
		case len(raw) == btcec.PubKeyBytesLenCompressed ||
			len(raw) == secp256k1.PubKeyBytesLenUncompressed:
			if underTaproot {
				return nil, fmt.Errorf("%w: tr() takes x-only keys", ErrInvalidKey)
			}
			pub, err := btcec.ParsePubKey(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			k.pub = pub
			k.uncompressed = len(raw) == secp256k1.PubKeyBytesLenUncompressed
			return k, nil
		}
	}
	wif, err := btcutil.DecodeWIF(rem)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, rem)
	}
	if underTaproot && !wif.CompressPubKey {
		return nil, fmt.Errorf("%w: tr() takes compressed keys only", ErrInvalidKey)
	}
	k.wif = wif
	k.pub = wif.PrivKey.PubKey()
	k.uncompressed = !wif.CompressPubKey
	return k, nil
}

func (k *KeyData) parseExtended(rem string) error {
	parts := strings.Split(rem, "/")
	base, err := hdkeychain.NewKeyFromString(parts[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	format, private, err := normalizeVersion(base)
	if err != nil {
		return err
	}
	if private != (k.typ == TypeBip32Priv) || private != base.IsPrivate() {
		return fmt.Errorf("%w: key type and version bytes disagree", ErrInvalidKey)
	}
	k.base = base
	k.format = format
	for i, p := range parts[1:] {
		last := i == len(parts)-2
		switch p {
		case "*":
			if !last {
				return fmt.Errorf("%w: %q", ErrWildcardMisuse, rem)
			}
			k.wildcard = true
		case "*'", "*h":
			if !last {
				return fmt.Errorf("%w: %q", ErrWildcardMisuse, rem)
			}
			if k.typ != TypeBip32Priv {
				return fmt.Errorf("%w: hardened wildcard on extended public key", ErrWildcardMisuse)
			}
			k.wildcard = true
			k.hardenedWildcard = true
		default:
			e, err := ParsePathElement(p)
			if err != nil {
				return err
			}
			k.fixedPath = append(k.fixedPath, e)
		}
	}
	derived := base
	for _, e := range k.fixedPath {
		derived, err = derived.Derive(e)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	}
	k.derived = derived
	return nil
}

func checkOrigin(origin string) error {
	fp, _, _ := strings.Cut(origin, "/")
	if len(fp) != 8 {
		return fmt.Errorf("%w: invalid fingerprint: %q", ErrInvalidKey, origin)
	}
	if _, err := hex.DecodeString(fp); err != nil {
		return fmt.Errorf("%w: invalid fingerprint: %q", ErrInvalidKey, origin)
	}
	return nil
}

// Type returns the key classification.
func (k *KeyData) Type() KeyType { return k.typ }

// Origin returns the fingerprint/path origin info, without brackets.
func (k *KeyData) Origin() string { return k.origin }

// Format returns the SLIP-132 serialization format of an extended key.
// Raw keys report FormatNormal.
func (k *KeyData) Format() FormatType { return k.format }

// IsUncompressed reports whether the key expression carries an
// uncompressed public key.
func (k *KeyData) IsUncompressed() bool { return k.uncompressed }

// HasWildcard reports whether a trailing wildcard requires a child
// index at evaluation time.
func (k *KeyData) HasWildcard() bool { return k.wildcard }

// HasHardenedWildcard reports a trailing *' or *h wildcard.
func (k *KeyData) HasHardenedWildcard() bool { return k.hardenedWildcard }

// WIF returns the decoded WIF private key, or nil.
func (k *KeyData) WIF() *btcutil.WIF { return k.wif }

// Base returns the extended key exactly as written, before the fixed
// path was applied. It is nil for raw keys.
func (k *KeyData) Base() *hdkeychain.ExtendedKey { return k.base }

// String returns the original key expression text.
func (k *KeyData) String() string { return k.value }

// Canonical returns the engine's canonical form of the key: hex for
// raw and WIF keys, the serialized pre-derived key for extended keys.
func (k *KeyData) Canonical() string {
	switch k.typ {
	case TypeSchnorr:
		return hex.EncodeToString(schnorr.SerializePubKey(k.pub))
	case TypeBip32Pub, TypeBip32Priv:
		return k.derived.String()
	default:
		if k.uncompressed {
			return hex.EncodeToString(k.pub.SerializeUncompressed())
		}
		return hex.EncodeToString(k.pub.SerializeCompressed())
	}
}

// Derive resolves the key expression. For extended keys with a
// wildcard, arg supplies the child index (or a deeper subpath such as
// "3/4"); it is ignored otherwise. DeriveBase resolves against the
// undecorated base key instead.
func (k *KeyData) Derive(arg string) (*Derived, error) {
	switch k.typ {
	case TypePublic, TypeSchnorr:
		return &Derived{Pub: k.pub, Uncompressed: k.uncompressed}, nil
	}
	key := k.derived
	if k.wildcard {
		path, err := ParsePath(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range path {
			key, err = key.Derive(e)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPath, err)
			}
		}
	}
	return finishDerive(key)
}

// DeriveBase resolves the undecorated base extended key, skipping the
// fixed path and any wildcard.
func (k *KeyData) DeriveBase() (*Derived, error) {
	if k.base == nil {
		return k.Derive("")
	}
	return finishDerive(k.base)
}

func finishDerive(key *hdkeychain.ExtendedKey) (*Derived, error) {
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Derived{Key: key, Pub: pub}, nil
}

// ParsePathElement parses a single derivation path element, with an
// optional ' or h hardened suffix.
func ParsePathElement(p string) (uint32, error) {
	hardened := false
	if len(p) > 0 {
		switch p[len(p)-1] {
		case '\'', 'h', 'H':
			hardened = true
			p = p[:len(p)-1]
		}
	}
	e, err := strconv.ParseUint(p, 10, 32)
	if err != nil || e >= hdkeychain.HardenedKeyStart {
		return 0, fmt.Errorf("%w: %q", ErrBadPath, p)
	}
	if hardened {
		e += hdkeychain.HardenedKeyStart
	}
	return uint32(e), nil
}

// ParsePath parses a /-separated derivation path such as "0/1h/5".
// A leading m/ prefix is accepted and ignored.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimPrefix(path, "m/")
	path = strings.TrimPrefix(path, "M/")
	if path == "" {
		return nil, nil
	}
	var res []uint32
	for _, p := range strings.Split(path, "/") {
		e, err := ParsePathElement(p)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}
