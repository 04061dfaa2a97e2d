package kmp

import (
	"encoding/hex"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/kamstrup/crc"
	"github.com/temoto/kamstrup/helpers"
)

var reservedValues = []byte{0x06, 0x0d, 0x1b, 0x40, 0x80}

func TestIsReserved(t *testing.T) {
	t.Parallel()
	n := 0
	for i := 0; i < 256; i++ {
		if IsReserved(byte(i)) {
			n++
		}
	}
	assert.Equal(t, len(reservedValues), n)
	for _, b := range reservedValues {
		assert.True(t, IsReserved(b), "%02x", b)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{"empty", "", "800d"},
		{"plain", "3f100001", "803f1000010d"},
		{"all-reserved", "060d1b408041", "801bf91bf21be41bbf1b7f410d"},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			actual := hex.EncodeToString(Encode(helpers.MustHex(c.input)))
			assert.Equal(t, c.expect, actual)
		})
	}
	assert.Equal(t, "403f0d", hex.EncodeToString(EncodeReplyFrame([]byte{0x3f})))
}

func TestEncodeNeverEmitsReserved(t *testing.T) {
	t.Parallel()
	rnd := helpers.RandUnix()
	for n := 0; n < 200; n++ {
		msg := make([]byte, rnd.Intn(40))
		rnd.Read(msg)
		// bias towards reserved values
		for i := range msg {
			if rnd.Intn(3) == 0 {
				msg[i] = reservedValues[rnd.Intn(len(reservedValues))]
			}
		}
		frame := Encode(crc.Seal(msg))
		require.Equal(t, StartMarker, frame[0])
		require.Equal(t, EndMarker, frame[len(frame)-1])
		inner := frame[1 : len(frame)-1]
		for i := 0; i < len(inner); i++ {
			if !IsReserved(inner[i]) {
				continue
			}
			require.Equal(t, EscapeMarker, inner[i], "frame=%x at=%d", frame, i+1)
			require.True(t, i+1 < len(inner), "frame=%x dangling escape", frame)
			require.True(t, IsReserved(inner[i+1]^0xff), "frame=%x at=%d", frame, i+2)
			i++
		}
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	rnd := helpers.RandUnix()
	for n := 0; n < 200; n++ {
		msg := make([]byte, 0, 32)
		for len(msg) < cap(msg)-rnd.Intn(28) {
			b := byte(rnd.Intn(256))
			if !IsReserved(b) {
				msg = append(msg, b)
			}
		}
		frame := Encode(crc.Seal(msg))
		decoded, err := Decode(frame[1:len(frame)-1], func(e error) { t.Errorf("unexpected warning %v", e) })
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestUnescapeAnomaly(t *testing.T) {
	t.Parallel()
	var warnings []error
	plain, err := Unescape(helpers.MustHex("3f 1b00 1bf9"), func(e error) { warnings = append(warnings, e) })
	require.NoError(t, err)
	assert.Equal(t, helpers.MustHex("3f ff 06"), plain)
	require.Len(t, warnings, 1)
	assert.True(t, IsEscapeAnomaly(warnings[0]))
	assert.Equal(t, EscapeAnomaly{Offset: 1, Value: 0xff}, warnings[0])

	// nil warn func is allowed
	plain, err = Unescape(helpers.MustHex("1b00"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, plain)
}

func TestDecode(t *testing.T) {
	t.Parallel()
	sealed := crc.Seal(helpers.MustHex("3f100001"))
	good := Escape(nil, sealed)
	corrupt := append([]byte(nil), good...)
	corrupt[1] ^= 0x01

	cases := []struct {
		name   string
		input  []byte
		expect string
		check  func(error) bool
	}{
		{"ok", good, "3f100001", nil},
		{"crc", corrupt, "", IsChecksumMismatch},
		{"truncated-escape", append(append([]byte(nil), good...), EscapeMarker), "", errors.IsNotValid},
		{"empty", nil, "", errors.IsNotValid},
		{"one-byte", []byte{0x01}, "", errors.IsNotValid},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			msg, err := Decode(c.input, nil)
			if c.check != nil {
				require.Error(t, err)
				assert.True(t, c.check(err), "err=%v", err)
				assert.True(t, IsRecoverable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, hex.EncodeToString(msg))
		})
	}
}
