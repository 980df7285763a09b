package descriptor

import (
	"fmt"
	"strings"
)

// Character set of the checksum input, ordered so that the most common
// descriptor characters land in the first group of 32 and case errors
// offset by a multiple of 32.
const inputCharset = "0123456789()[],'/*abcdefgh@:$%{}" +
	"IJKLMNOPQRSTUVWXYZ&+-.;<=>?!^_|~" +
	"ijklmnopqrstuvwxyzABCDEFGH`#\"\\ "

// Character set of the checksum itself, same as bech32.
const checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var checksumGenerator = [5]uint64{
	0xf5dee51989, 0xa9fdca3312, 0x1bab10e32d, 0x3706b1677a, 0x644d626ffd,
}

func polymod(c uint64, v uint64) uint64 {
	c0 := c >> 35
	c = (c&0x7ffffffff)<<5 ^ v
	for i := range checksumGenerator {
		if (c0>>i)&1 != 0 {
			c ^= checksumGenerator[i]
		}
	}
	return c
}

// Checksum computes the 8-character checksum of a descriptor body. The
// body must not include a '#' checksum section of its own.
func Checksum(desc string) (string, error) {
	c := uint64(1)
	cls := uint64(0)
	clsCount := 0
	for i := 0; i < len(desc); i++ {
		pos := strings.IndexByte(inputCharset, desc[i])
		if pos == -1 {
			return "", fmt.Errorf("%w: invalid character %q", ErrChecksumFormat, desc[i])
		}
		// One symbol for the position inside the group of 32, for
		// every character.
		c = polymod(c, uint64(pos)&31)
		// One extra symbol for the accumulated group numbers, for
		// every 3 characters.
		cls = cls*3 + uint64(pos)>>5
		clsCount++
		if clsCount == 3 {
			c = polymod(c, cls)
			cls = 0
			clsCount = 0
		}
	}
	if clsCount > 0 {
		c = polymod(c, cls)
	}
	// Shift further to determine the checksum.
	for j := 0; j < 8; j++ {
		c = polymod(c, 0)
	}
	// Prevent appending zeroes from not affecting the checksum.
	c ^= 1

	var sum [8]byte
	for j := range sum {
		sum[j] = checksumCharset[(c>>(5*(7-uint(j))))&31]
	}
	return string(sum[:]), nil
}

// verifyChecksum checks the supplied checksum against the descriptor
// body.
func verifyChecksum(desc, sum string) error {
	if len(sum) != 8 {
		return fmt.Errorf("%w: expected 8 characters, got %d", ErrChecksumFormat, len(sum))
	}
	want, err := Checksum(desc)
	if err != nil {
		return err
	}
	if sum != want {
		log.Warnf("checksum %q does not match computed %q", sum, want)
		return fmt.Errorf("%w: have %s, computed %s", ErrChecksumMismatch, sum, want)
	}
	return nil
}
