package lora

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPort plays back canned responses per register command, mimicking
// the module's config-mode UART behavior.
type scriptedPort struct {
	writes    [][]byte
	responses [][]byte
	pending   bytes.Buffer
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, append([]byte(nil), b...))
	if len(p.responses) > 0 {
		p.pending.Write(p.responses[0])
		p.responses = p.responses[1:]
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	return p.pending.Read(b)
}

func paramBlock(chan_ byte) []byte {
	b := make([]byte, paramBlockLen)
	b[paramChanIndex] = chan_
	return b
}

func TestSetChannel_ReadModifyWriteVerify(t *testing.T) {
	port := &scriptedPort{responses: [][]byte{
		paramBlock(0x12), // initial read
		nil,              // write command has no response payload
		paramBlock(0x41), // verify readback
	}}

	require.NoError(t, setChannel(port, 0x41))

	require.Len(t, port.writes, 3)
	assert.Equal(t, []byte{regRead, 0x00, paramBlockLen}, port.writes[0])
	want := append([]byte{regWrite, 0x00, paramBlockLen}, paramBlock(0x41)...)
	assert.Equal(t, want, port.writes[1])
	assert.Equal(t, []byte{regRead, 0x00, paramBlockLen}, port.writes[2])
}

func TestSetChannel_VerifyMismatch(t *testing.T) {
	port := &scriptedPort{responses: [][]byte{
		paramBlock(0x12),
		nil,
		paramBlock(0x12), // module did not take the write
	}}

	err := setChannel(port, 0x41)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify failed")
}

func TestSetChannel_ShortResponse(t *testing.T) {
	port := &scriptedPort{responses: [][]byte{
		{0x00, 0x01}, // truncated parameter block
	}}

	err := setChannel(port, 0x41)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short response")
}

func TestReadExact_AcrossFragmentedReads(t *testing.T) {
	port := &scriptedPort{}
	port.pending.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})

	got, err := readExact(port, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}
