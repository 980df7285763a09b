package descriptor

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// AddressType classifies the address form of an evaluated reference.
type AddressType int

const (
	AddressTypeUnknown AddressType = iota
	AddressTypeP2pkh
	AddressTypeP2sh
	AddressTypeP2shP2wpkh
	AddressTypeP2shP2wsh
	AddressTypeP2wpkh
	AddressTypeP2wsh
	AddressTypeTaproot
	// AddressTypeBare marks bare P2PK and bare multisig locking
	// scripts, which have no standard address form.
	AddressTypeBare
)

func (t AddressType) String() string {
	switch t {
	case AddressTypeP2pkh:
		return "p2pkh"
	case AddressTypeP2sh:
		return "p2sh"
	case AddressTypeP2shP2wpkh:
		return "p2sh-p2wpkh"
	case AddressTypeP2shP2wsh:
		return "p2sh-p2wsh"
	case AddressTypeP2wpkh:
		return "p2wpkh"
	case AddressTypeP2wsh:
		return "p2wsh"
	case AddressTypeTaproot:
		return "p2tr"
	case AddressTypeBare:
		return "bare"
	default:
		return "unknown"
	}
}

// Address derives the address of the reference. Multisig and bare
// P2PK references yield the P2PKH address of their first key; raw()
// references are addressable only when the locking script matches a
// standard pattern.
func (r *ScriptReference) Address() (btcutil.Address, error) {
	switch r.Type {
	case TypeRaw:
		return addressFromScript(r.Script, r.params)
	case TypeAddr:
		return r.Addr, nil
	case TypeTaproot:
		// The witness program is the tweaked output key.
		return btcutil.NewAddressTaproot(r.Script[2:], r.params)
	case TypeWsh:
		hash := r.Script[2:]
		return btcutil.NewAddressWitnessScriptHash(hash, r.params)
	case TypeSh:
		return btcutil.NewAddressScriptHash(r.RedeemScript, r.params)
	case TypeWpkh:
		return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(r.Keys[0].Serialized), r.params)
	case TypePk, TypePkh, TypeMulti, TypeSortedMulti:
		return btcutil.NewAddressPubKeyHash(btcutil.Hash160(r.Keys[0].Serialized), r.params)
	case TypeCombo:
		switch {
		case isP2sh(r.Script):
			return btcutil.NewAddressScriptHash(r.RedeemScript, r.params)
		case isP2wpkh(r.Script):
			return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(r.Keys[0].Serialized), r.params)
		default:
			return btcutil.NewAddressPubKeyHash(btcutil.Hash160(r.Keys[0].Serialized), r.params)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoAddress, r.Type)
	}
}

// Addresses derives the address list of the reference. Multisig
// references expand to the P2PKH address of every key.
func (r *ScriptReference) Addresses() ([]btcutil.Address, error) {
	if r.Type == TypeMulti || r.Type == TypeSortedMulti {
		addrs := make([]btcutil.Address, len(r.Keys))
		for i, k := range r.Keys {
			addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(k.Serialized), r.params)
			if err != nil {
				return nil, err
			}
			addrs[i] = addr
		}
		return addrs, nil
	}
	addr, err := r.Address()
	if err != nil {
		return nil, err
	}
	return []btcutil.Address{addr}, nil
}

// AddressType classifies the locking script of the reference.
func (r *ScriptReference) AddressType() (AddressType, error) {
	if r.Type == TypeAddr {
		return addressTypeOf(r.Addr), nil
	}
	switch {
	case isP2sh(r.Script):
		switch {
		case isP2wpkh(r.RedeemScript):
			return AddressTypeP2shP2wpkh, nil
		case isP2wsh(r.RedeemScript):
			return AddressTypeP2shP2wsh, nil
		}
		return AddressTypeP2sh, nil
	case isP2wpkh(r.Script):
		return AddressTypeP2wpkh, nil
	case isP2wsh(r.Script):
		return AddressTypeP2wsh, nil
	case isP2tr(r.Script):
		return AddressTypeTaproot, nil
	case isP2pkh(r.Script):
		return AddressTypeP2pkh, nil
	}
	cls := txscript.GetScriptClass(r.Script)
	if cls == txscript.PubKeyTy || cls == txscript.MultiSigTy {
		return AddressTypeBare, nil
	}
	return AddressTypeUnknown, fmt.Errorf("%w: nonstandard locking script", ErrNoAddress)
}

// addressFromScript recovers the address of a standard locking script.
func addressFromScript(script []byte, params *chaincfg.Params) (btcutil.Address, error) {
	switch {
	case isP2wpkh(script):
		return btcutil.NewAddressWitnessPubKeyHash(script[2:], params)
	case isP2wsh(script):
		return btcutil.NewAddressWitnessScriptHash(script[2:], params)
	case isP2tr(script):
		return btcutil.NewAddressTaproot(script[2:], params)
	case isP2sh(script):
		return btcutil.NewAddressScriptHashFromHash(script[2:22], params)
	case isP2pkh(script):
		return btcutil.NewAddressPubKeyHash(script[3:23], params)
	}
	return nil, fmt.Errorf("%w: nonstandard locking script", ErrNoAddress)
}

func addressTypeOf(addr btcutil.Address) AddressType {
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return AddressTypeP2pkh
	case *btcutil.AddressScriptHash:
		return AddressTypeP2sh
	case *btcutil.AddressWitnessPubKeyHash:
		return AddressTypeP2wpkh
	case *btcutil.AddressWitnessScriptHash:
		return AddressTypeP2wsh
	case *btcutil.AddressTaproot:
		return AddressTypeTaproot
	default:
		return AddressTypeUnknown
	}
}

// Standard locking script patterns.

func isP2pkh(s []byte) bool {
	return len(s) == 25 && s[0] == txscript.OP_DUP && s[1] == txscript.OP_HASH160 &&
		s[2] == txscript.OP_DATA_20 && s[23] == txscript.OP_EQUALVERIFY &&
		s[24] == txscript.OP_CHECKSIG
}

func isP2sh(s []byte) bool {
	return len(s) == 23 && s[0] == txscript.OP_HASH160 &&
		s[1] == txscript.OP_DATA_20 && s[22] == txscript.OP_EQUAL
}

func isP2wpkh(s []byte) bool {
	return len(s) == 22 && s[0] == txscript.OP_0 && s[1] == txscript.OP_DATA_20
}

func isP2wsh(s []byte) bool {
	return len(s) == 34 && s[0] == txscript.OP_0 && s[1] == txscript.OP_DATA_32
}

func isP2tr(s []byte) bool {
	return len(s) == 34 && s[0] == txscript.OP_1 && s[1] == txscript.OP_DATA_32
}
