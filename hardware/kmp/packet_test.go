package kmp

import (
	"bytes"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/kamstrup/helpers"
)

func TestPacketFormat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{"empty", "", ""},
		{"short", "000000", "000000"},
		{"long", "3f100001040200000064", "3f100001 04020000 0064"},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			p, err := PacketFromHex(c.input)
			require.NoError(t, err)
			assert.Equal(t, c.expect, p.Format())
		})
	}
}

func TestPacketOverflow(t *testing.T) {
	t.Parallel()
	var p Packet
	for i := 0; i < PacketMaxLength; i++ {
		require.NoError(t, p.AppendByte(byte(i)))
	}
	err := p.AppendByte(0xff)
	assert.Equal(t, ErrBufferOverflow, errors.Cause(err))
	assert.Equal(t, PacketMaxLength, p.Len())

	p.Reset()
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Bytes())

	_, err = PacketFromBytes(bytes.Repeat([]byte{'.'}, PacketMaxLength+1))
	assert.Equal(t, ErrBufferOverflow, err)
	_, err = PacketFromHex("invalid hex")
	assert.Error(t, err)
}
