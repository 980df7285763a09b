package main

import (
	"strings"
	"testing"
)

func TestChecksumCommand(t *testing.T) {
	const body = "pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)"
	var out strings.Builder
	if err := run(&out, strings.NewReader(""), []string{"checksum", body}); err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(out.String())
	if !strings.HasPrefix(got, body+"#") {
		t.Errorf("unexpected output: %q", got)
	}
	if len(got) != len(body)+9 {
		t.Errorf("expected 8 character checksum: %q", got)
	}

	// The emitted form must parse.
	out.Reset()
	if err := run(&out, strings.NewReader(""), []string{"parse", got}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "type: pkh") {
		t.Errorf("unexpected parse output: %q", out.String())
	}
}

func TestScriptCommand(t *testing.T) {
	const body = "pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)"
	var out strings.Builder
	if err := run(&out, strings.NewReader(""), []string{"script", body}); err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(out.String())
	if !strings.HasPrefix(got, "76a914") || !strings.HasSuffix(got, "88ac") {
		t.Errorf("not a p2pkh script: %q", got)
	}
}
