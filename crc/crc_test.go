package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeCheck(fun func([]byte) uint16, tag string) func(t *testing.T, vs []byte, expect uint16) {
	return func(t *testing.T, vs []byte, expect uint16) {
		t.Helper()
		if actual := fun(vs); actual != expect {
			t.Errorf("%s(%x) = %04x expected=%04x", tag, vs, actual, expect)
		}
	}
}

func TestCRC16(t *testing.T) {
	t.Parallel()
	check := makeCheck(CRC16_p1021, "CRC16_p1021")
	check(t, nil, 0x0000)
	check(t, []byte{}, 0x0000)
	check(t, []byte{0x00, 0x00}, 0x0000)
	// with two augment bytes result is CRC-16/XMODEM
	check(t, []byte("123456789\x00\x00"), 0x31c3)
	check(t, []byte{0x01}, 0x0001)
	check(t, []byte{0x01, 0x00, 0x00}, 0x1021)
}

func TestDeterministic(t *testing.T) {
	t.Parallel()
	b := []byte{0x3f, 0x10, 0x00, 0x01, 0x00, 0x00}
	assert.Equal(t, CRC16_p1021(b), CRC16_p1021(b))
}

func TestSeal(t *testing.T) {
	t.Parallel()
	cases := [][]byte{
		{},
		{0x3f, 0x10, 0x00, 0x01},
		{0x3f, 0x10, 0x04, 0x1e, 0x04, 0x00, 0x00, 0x00, 0x00, 0xe6},
		[]byte("123456789"),
	}
	for _, msg := range cases {
		sealed := Seal(msg)
		assert.Len(t, sealed, len(msg)+2)
		assert.Equal(t, msg, sealed[:len(msg)])
		assert.True(t, Valid(sealed), "sealed=%x", sealed)
		assert.Equal(t, uint16(0), CRC16_p1021(sealed))
	}
	assert.Equal(t, []byte("123456789\x31\xc3"), Seal([]byte("123456789")))
}

func TestValidDetectsCorruption(t *testing.T) {
	t.Parallel()
	sealed := Seal([]byte{0x3f, 0x10, 0x00, 0x01})
	sealed[2] ^= 0x01
	assert.False(t, Valid(sealed))
}
