// package miniscript is the seam between the descriptor engine and an
// external miniscript compiler. The engine hands unrecognized operator
// expressions found under wsh(), sh() or tr() to the registered
// compiler; no compiler is bundled.
package miniscript

import "errors"

// Flags select the compilation target of a miniscript expression.
type Flags uint32

const (
	// WitnessScript compiles for a v0 witness (or legacy) script
	// context.
	WitnessScript Flags = 1 << iota
	// Tapscript compiles for a tapleaf context.
	Tapscript
)

// ErrNoCompiler is returned by Compile when no compiler has been
// registered.
var ErrNoCompiler = errors.New("miniscript: no compiler registered")

// CompileFunc compiles a miniscript expression such as
// "and_v(v:pk(K),older(144))" into script bytes. childNum supplies the
// BIP32 child index substituted for wildcards in the expression.
type CompileFunc func(script string, childNum uint32, flags Flags) ([]byte, error)

var compiler CompileFunc

// SetCompiler registers the compiler used by Compile. It is intended
// to be called once during program initialization, before descriptors
// are parsed.
func SetCompiler(f CompileFunc) {
	compiler = f
}

// Available reports whether a compiler has been registered.
func Available() bool {
	return compiler != nil
}

// Compile invokes the registered compiler.
func Compile(script string, childNum uint32, flags Flags) ([]byte, error) {
	if compiler == nil {
		return nil, ErrNoCompiler
	}
	return compiler(script, childNum, flags)
}
