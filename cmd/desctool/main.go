// Command desctool parses bitcoin output descriptors and derives
// their checksums, locking scripts, addresses and key material. It
// reads the descriptor from the command line or standard in.
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"outscript.dev/descriptor"
	"outscript.dev/netparams"
)

var (
	scriptFlags = flag.NewFlagSet("script", flag.ExitOnError)
	scriptArgs  = scriptFlags.String("args", "", "comma-separated wildcard arguments")
	scriptNet   = scriptFlags.String("net", "mainnet", "network (mainnet, testnet, regtest, liquid)")

	addrFlags = flag.NewFlagSet("addr", flag.ExitOnError)
	addrArgs  = addrFlags.String("args", "", "comma-separated wildcard arguments")
	addrNet   = addrFlags.String("net", "mainnet", "network (mainnet, testnet, regtest, liquid)")

	parseFlags = flag.NewFlagSet("parse", flag.ExitOnError)
	parseNet   = parseFlags.String("net", "mainnet", "network (mainnet, testnet, regtest, liquid)")
)

func main() {
	if err := run(os.Stdout, os.Stdin, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "desctool: %v\n", err)
		os.Exit(2)
	}
}

func run(stdout io.Writer, stdin io.Reader, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command (addr, checksum, parse, script)")
	}
	cmd := args[0]
	args = args[1:]
	switch cmd {
	case "checksum":
		desc, err := input(stdin, args)
		if err != nil {
			return err
		}
		body, _, _ := strings.Cut(desc, "#")
		sum, err := descriptor.Checksum(body)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s#%s\n", body, sum)
		return nil
	case "parse":
		if err := parseFlags.Parse(args); err != nil {
			parseFlags.Usage()
		}
		return parse(stdout, stdin, parseFlags.Args(), *parseNet)
	case "script":
		if err := scriptFlags.Parse(args); err != nil {
			scriptFlags.Usage()
		}
		return scripts(stdout, stdin, scriptFlags.Args(), *scriptNet, *scriptArgs)
	case "addr":
		if err := addrFlags.Parse(args); err != nil {
			addrFlags.Usage()
		}
		return addresses(stdout, stdin, addrFlags.Args(), *addrNet, *addrArgs)
	default:
		return fmt.Errorf("unknown command: %q", cmd)
	}
}

func parse(stdout io.Writer, stdin io.Reader, args []string, net string) error {
	d, err := load(stdin, args, net)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, d.Encode())
	fmt.Fprintf(stdout, "type: %s\n", d.ScriptType())
	fmt.Fprintf(stdout, "arguments: %d\n", d.NeedArgumentNum())
	return nil
}

func scripts(stdout io.Writer, stdin io.Reader, args []string, net, derivation string) error {
	d, err := load(stdin, args, net)
	if err != nil {
		return err
	}
	scripts, err := d.LockingScripts(splitArgs(derivation)...)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		fmt.Fprintln(stdout, hex.EncodeToString(s))
	}
	return nil
}

func addresses(stdout io.Writer, stdin io.Reader, args []string, net, derivation string) error {
	d, err := load(stdin, args, net)
	if err != nil {
		return err
	}
	refs, err := d.References(splitArgs(derivation)...)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		addr, err := ref.Address()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, addr.String())
	}
	return nil
}

func load(stdin io.Reader, args []string, net string) (*descriptor.Descriptor, error) {
	desc, err := input(stdin, args)
	if err != nil {
		return nil, err
	}
	params, err := lookupNet(net)
	if err != nil {
		return nil, err
	}
	return descriptor.ParseWithParams(desc, params)
}

func lookupNet(net string) (*chaincfg.Params, error) {
	switch net {
	case "mainnet":
		return netparams.MainNet, nil
	case "testnet":
		return netparams.TestNet3, nil
	case "regtest":
		return netparams.RegTest, nil
	case "liquid":
		return &netparams.Liquid, nil
	default:
		return nil, fmt.Errorf("unknown network: %q", net)
	}
}

func input(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(b)), nil
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
