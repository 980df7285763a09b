// package netparams provides the address prefix tables understood by
// the descriptor engine: the standard bitcoin networks plus the
// Elements/Liquid sidechain networks.
package netparams

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// Re-exported bitcoin parameter sets, so callers of the descriptor
// packages rarely need to import chaincfg directly.
var (
	MainNet  = &chaincfg.MainNetParams
	TestNet3 = &chaincfg.TestNet3Params
	RegTest  = &chaincfg.RegressionNetParams
	SigNet   = &chaincfg.SigNetParams
)

// Liquid defines the address parameters for the production Liquid
// network. Confidential address prefixes are out of scope; only the
// plain address forms are representable.
var Liquid = chaincfg.Params{
	Name:             "liquidv1",
	Net:              wire.BitcoinNet(0x6d656c64),
	PubKeyHashAddrID: 57,
	ScriptHashAddrID: 39,
	PrivateKeyID:     0x80,
	Bech32HRPSegwit:  "ex",
	HDPrivateKeyID:   [4]byte{0x04, 0x88, 0xad, 0xe4},
	HDPublicKeyID:    [4]byte{0x04, 0x88, 0xb2, 0x1e},
	HDCoinType:       1776,
}

// LiquidTestNet defines the address parameters for the Liquid test
// network.
var LiquidTestNet = chaincfg.Params{
	Name:             "liquidtestnet",
	Net:              wire.BitcoinNet(0x6d656c74),
	PubKeyHashAddrID: 36,
	ScriptHashAddrID: 19,
	PrivateKeyID:     0xef,
	Bech32HRPSegwit:  "tex",
	HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
	HDCoinType:       1,
}

func init() {
	// Address decoding consults the registry for bech32 prefixes, so
	// the sidechain networks must be registered like any altnet.
	for _, params := range []*chaincfg.Params{&Liquid, &LiquidTestNet, &ElementsRegTest} {
		if err := chaincfg.Register(params); err != nil {
			panic("netparams: " + err.Error())
		}
	}
}

// ElementsRegTest defines the address parameters for a local Elements
// regtest network.
var ElementsRegTest = chaincfg.Params{
	Name:             "elementsregtest",
	Net:              wire.BitcoinNet(0x6d656c72),
	PubKeyHashAddrID: 235,
	ScriptHashAddrID: 75,
	PrivateKeyID:     0xef,
	Bech32HRPSegwit:  "ert",
	HDPrivateKeyID:   [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:    [4]byte{0x04, 0x35, 0x87, 0xcf},
	HDCoinType:       1,
}
