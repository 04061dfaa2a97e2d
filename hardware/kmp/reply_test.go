package kmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/kamstrup/helpers"
)

func TestDecodeReply(t *testing.T) {
	t.Parallel()
	type Case struct {
		name     string
		id       RegisterID
		exp      byte
		mantissa string
		expect   float64
	}
	cases := []Case{
		{"positive-exp", 0x0001, 0x02, "00000064", 10000},
		{"negative-exp-negative-value", 0x0001, 0xc2, "00000064", -1},
		{"negative-exp", 0x041e, 0x41, "000008fc", 230},
		{"negative-value", 0x03ff, 0x80, "0005", -5},
		{"zero-exp", 0x0434, 0x00, "ff", 255},
		{"zero-length", 0x0001, 0x00, "", 0},
		{"zero-negative", 0x0001, 0x80, "00", 0},
		{"wide", 0x0001, 0x43, "0000000102030405", 4328719.365},
		{"max-magnitude", 0x0002, 0x3f, "01", 1e63},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			sealed := EncodeReply(c.id, c.exp, helpers.MustHex(c.mantissa))
			r, err := DecodeReply(c.id, sealed[:len(sealed)-2])
			require.NoError(t, err)
			assert.Equal(t, c.id, r.Register)
			assert.InDelta(t, c.expect, r.Value, 1e-9*(1+abs(c.expect)))
		})
	}
}

func TestDecodeReplyMismatch(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "3f100001"},
		{"opcode", "3e100001010005"},
		{"sub-opcode", "3f110001010005"},
		{"register", "3f100002010005"},
		{"length", "3f1000010400000000"},
		{"too-long-mantissa", "3f1000010900010203040506070809"},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeReply(0x0001, helpers.MustHex(c.input))
			require.Error(t, err)
			assert.True(t, IsProtocolMismatch(err), "err=%v", err)
			assert.False(t, IsChecksumMismatch(err))
			assert.True(t, IsRecoverable(err))
		})
	}
}

// Same bytes fail differently: wrong address with valid checksum is mismatch,
// corrected address with stale checksum is checksum error.
func TestMismatchDistinctFromChecksum(t *testing.T) {
	t.Parallel()
	sealed := EncodeReply(0x0002, 0x00, []byte{0x2a})

	msg, err := Decode(Escape(nil, sealed), nil)
	require.NoError(t, err)
	_, err = DecodeReply(0x0001, msg)
	assert.True(t, IsProtocolMismatch(err), "err=%v", err)
	assert.False(t, IsChecksumMismatch(err))

	fixed := append([]byte(nil), sealed...)
	fixed[3] = 0x01
	_, err = Decode(Escape(nil, fixed), nil)
	assert.True(t, IsChecksumMismatch(err), "err=%v", err)
	assert.False(t, IsProtocolMismatch(err))
}

func TestReadingString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0x041e=230.5", Reading{Register: 0x041e, Value: 230.5}.String())
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
