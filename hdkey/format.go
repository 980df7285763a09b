package hdkey

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// FormatType distinguishes the SLIP-132 serialization families of an
// extended key. The prefix implies the script type the key was issued
// for, which constrains where the key may appear in a descriptor.
type FormatType int

const (
	// FormatNormal is a plain xpub/xprv (or tpub/tprv).
	FormatNormal FormatType = iota
	// FormatBip49 is a ypub/yprv (upub/uprv) key, issued for
	// P2SH-wrapped segwit.
	FormatBip49
	// FormatBip84 is a zpub/zprv (vpub/vprv) key, issued for native
	// segwit.
	FormatBip84
)

func (f FormatType) String() string {
	switch f {
	case FormatBip49:
		return "bip49"
	case FormatBip84:
		return "bip84"
	default:
		return "normal"
	}
}

// SLIP-132 version bytes, hex encoded.
const (
	xpubVer = "0488b21e"
	xprvVer = "0488ade4"
	ypubVer = "049d7cb2"
	yprvVer = "049d7878"
	zpubVer = "04b24746"
	zprvVer = "04b2430c"
	// Multisig variants (Ypub/Zpub and friends).
	mypubVer = "0295b43f"
	myprvVer = "0295b005"
	mzpubVer = "02aa7ed3"
	mzprvVer = "02aa7a99"

	tpubVer = "043587cf"
	tprvVer = "04358394"
	upubVer = "044a5262"
	uprvVer = "044a4e28"
	vpubVer = "045f1cf6"
	vprvVer = "045f18bc"
)

// normalizeVersion classifies the version bytes of an extended key and
// rewrites them to the plain xpub/xprv (tpub/tprv) form so that the
// canonical serialization is network-stable.
func normalizeVersion(key *hdkeychain.ExtendedKey) (FormatType, bool, error) {
	version := hex.EncodeToString(key.Version())
	var (
		format  FormatType
		private bool
		testnet bool
	)
	switch version {
	case xpubVer, mypubVer, mzpubVer:
	case xprvVer, myprvVer, mzprvVer:
		private = true
	case ypubVer:
		format = FormatBip49
	case yprvVer:
		format = FormatBip49
		private = true
	case zpubVer:
		format = FormatBip84
	case zprvVer:
		format = FormatBip84
		private = true
	case tpubVer:
		testnet = true
	case tprvVer:
		testnet = true
		private = true
	case upubVer:
		format = FormatBip49
		testnet = true
	case uprvVer:
		format = FormatBip49
		testnet = true
		private = true
	case vpubVer:
		format = FormatBip84
		testnet = true
	case vprvVer:
		format = FormatBip84
		testnet = true
		private = true
	default:
		return 0, false, fmt.Errorf("%w: unknown extended key version %s", ErrInvalidKey, version)
	}
	if testnet {
		key.SetNet(&chaincfg.TestNet3Params)
	} else {
		key.SetNet(&chaincfg.MainNetParams)
	}
	return format, private, nil
}
