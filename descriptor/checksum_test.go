package descriptor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumDeterministic(t *testing.T) {
	const body = "pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)"
	sum1, err := Checksum(body)
	require.NoError(t, err)
	sum2, err := Checksum(body)
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)
	require.Len(t, sum1, 8)
	for i := 0; i < len(sum1); i++ {
		require.Contains(t, checksumCharset, string(sum1[i]))
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	bodies := []string{
		"pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)",
		"wsh(pk(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798))",
		"raw(51)",
	}
	for _, body := range bodies {
		sum, err := Checksum(body)
		require.NoError(t, err)
		d, err := Parse(body + "#" + sum)
		require.NoError(t, err, body)
		require.Equal(t, body+"#"+sum, d.Encode())
	}
}

func TestChecksumDetectsBodyChange(t *testing.T) {
	const body = "pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)"
	sum, err := Checksum(body)
	require.NoError(t, err)
	for i := 0; i < len(body); i++ {
		altered := []byte(body)
		if altered[i] == 'a' {
			altered[i] = 'b'
		} else {
			altered[i] = 'a'
		}
		got, err := Checksum(string(altered))
		require.NoError(t, err)
		require.NotEqual(t, sum, got, "flip at %d undetected", i)
	}
}

func TestChecksumDetectsChecksumChange(t *testing.T) {
	const body = "pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)"
	sum, err := Checksum(body)
	require.NoError(t, err)
	for i := 0; i < len(sum); i++ {
		flipped := []byte(sum)
		idx := strings.IndexByte(checksumCharset, flipped[i])
		flipped[i] = checksumCharset[(idx+1)%len(checksumCharset)]
		_, err := Parse(body + "#" + string(flipped))
		require.ErrorIs(t, err, ErrChecksumMismatch, "flip at %d", i)
	}
}

func TestChecksumFormatErrors(t *testing.T) {
	const body = "pkh(0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798)"
	sum, err := Checksum(body)
	require.NoError(t, err)

	_, err = Parse(body + "#" + sum[:7])
	require.ErrorIs(t, err, ErrChecksumFormat)

	_, err = Parse(body + "#" + sum + "q")
	require.ErrorIs(t, err, ErrChecksumFormat)

	_, err = Parse(body + "#" + sum + "#" + sum)
	require.ErrorIs(t, err, ErrChecksumFormat)

	_, err = Checksum("pkh(\x01)")
	require.ErrorIs(t, err, ErrChecksumFormat)
}
