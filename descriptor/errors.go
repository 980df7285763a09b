package descriptor

import (
	"errors"

	"outscript.dev/hdkey"
)

// Error kinds reported by parsing, analysis and evaluation. All errors
// returned by this package wrap exactly one of these sentinels; test
// with errors.Is.
var (
	// ErrChecksumFormat reports a malformed checksum section: a
	// misplaced or repeated '#', a checksum that is not 8 characters,
	// or an input character outside the checksum input alphabet.
	ErrChecksumFormat = errors.New("descriptor: invalid checksum format")
	// ErrChecksumMismatch reports a checksum that does not match the
	// descriptor body.
	ErrChecksumMismatch = errors.New("descriptor: checksum mismatch")
	// ErrSyntax reports unbalanced brackets, an empty operator body
	// or a malformed expression.
	ErrSyntax = errors.New("descriptor: syntax error")
	// ErrUnknownOperator reports a name that is neither a recognized
	// script operator nor accepted by the miniscript compiler.
	ErrUnknownOperator = errors.New("descriptor: unknown operator")
	// ErrInvalidComposition reports an operator in a position its
	// placement rules forbid.
	ErrInvalidComposition = errors.New("descriptor: invalid composition")
	// ErrInvalidKey reports a key expression that is not a public
	// key, x-only key, WIF key or extended key.
	ErrInvalidKey = hdkey.ErrInvalidKey
	// ErrWildcardMisuse reports a non-terminal wildcard or a hardened
	// wildcard on an extended public key.
	ErrWildcardMisuse = hdkey.ErrWildcardMisuse
	// ErrUncompressedInWitness reports an uncompressed public key
	// inside a witness or taproot scope.
	ErrUncompressedInWitness = errors.New("descriptor: uncompressed key in witness script")
	// ErrBipFormatMismatch reports a BIP49/BIP84 extended key used in
	// an incompatible script form.
	ErrBipFormatMismatch = errors.New("descriptor: incompatible bip32 key format")
	// ErrSizeExceeded reports a redeem script or multisig key count
	// over its limit.
	ErrSizeExceeded = errors.New("descriptor: size limit exceeded")
	// ErrArgumentMissing reports a wildcard with no argument left to
	// consume.
	ErrArgumentMissing = errors.New("descriptor: missing derivation argument")
	// ErrArgumentMalformed reports a derivation argument that does
	// not fit its position, such as a subpath where a plain child
	// number is required.
	ErrArgumentMalformed = errors.New("descriptor: malformed argument")
	// ErrNoAddress reports a locking script with no standard address
	// form.
	ErrNoAddress = errors.New("descriptor: script has no address form")
)
