package blocks_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jcorbin/forthvm/internal/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	actions    []string
	errorAfter int // fail once this many actions have happened, if > 0
}

func (fd *fakeDevice) act(op string, idx uint16, p []byte) error {
	if fd.errorAfter > 0 && len(fd.actions) >= fd.errorAfter {
		return errors.New("device on fire")
	}
	fd.actions = append(fd.actions, fmt.Sprintf("%v %v %q", op, idx, p[:1]))
	return nil
}

func (fd *fakeDevice) ReadBlock(idx uint16, p []byte) error {
	p[0] = byte('a' + idx%26)
	return fd.act("read", idx, p)
}

func (fd *fakeDevice) WriteBlock(idx uint16, p []byte) error { return fd.act("write", idx, p) }

func (fd *fakeDevice) take() []string {
	actions := fd.actions
	fd.actions = nil
	return actions
}

func newTestCache(dev blocks.Device) *blocks.Cache {
	return blocks.New(dev,
		blocks.Slot{Addr: 100, Buf: make([]byte, 8)},
		blocks.Slot{Addr: 200, Buf: make([]byte, 8)},
	)
}

func Test_Cache(t *testing.T) {
	var dev fakeDevice
	c := newTestCache(&dev)
	assert.Empty(t, dev.actions, "expected no initial device actions")
	assert.Equal(t, []byte("        "), c.Slots()[0].Buf, "expected space filled buffers")

	addr, err := c.Block(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), addr, "expected block in the older slot")
	assert.Equal(t, []string{`read 1 "b"`}, dev.take())
	c.Update()

	addr, err = c.Block(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), addr)
	assert.Equal(t, []string{`read 2 "c"`}, dev.take())

	addr, err = c.Block(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), addr, "expected resident block to be reused")
	assert.Empty(t, dev.take(), "expected no device io for a resident block")

	addr, err = c.Block(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), addr, "expected clean block 2 to be evicted")
	assert.Equal(t, []string{`read 3 "d"`}, dev.take())

	addr, err = c.Block(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), addr, "expected dirty block 1 to be evicted")
	assert.Equal(t, []string{`write 1 "b"`, `read 4 "e"`}, dev.take())

	_, err = c.Buffer(5)
	require.NoError(t, err)
	assert.Empty(t, dev.take(), "expected buffer to skip reading")
	c.Update()
	assert.Equal(t, blocks.Dirty, c.Slots()[0].State)

	require.NoError(t, c.Flush())
	assert.Equal(t, []string{`write 5 "d"`}, dev.take())
	assert.Equal(t, blocks.Empty, c.Slots()[0].State)
	assert.Equal(t, blocks.Empty, c.Slots()[1].State)
}

func Test_Cache_emptyBuffers(t *testing.T) {
	var dev fakeDevice
	c := newTestCache(&dev)
	_, err := c.Block(7)
	require.NoError(t, err)
	c.Update()
	c.EmptyBuffers()
	require.NoError(t, c.Flush())
	assert.Equal(t, []string{`read 7 "h"`}, dev.take(), "expected discarded update")
}

func Test_Cache_errors(t *testing.T) {
	c := blocks.New(nil, blocks.Slot{Buf: make([]byte, 4)}, blocks.Slot{Buf: make([]byte, 4)})
	_, err := c.Block(1)
	assert.Equal(t, blocks.ErrNoDevice, err)

	dev := fakeDevice{errorAfter: 1}
	c = newTestCache(&dev)
	_, err = c.Block(1)
	require.NoError(t, err)
	_, err = c.Block(2)
	var ioErr blocks.IOError
	require.True(t, errors.As(err, &ioErr), "expected an IOError, got %v", err)
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, uint16(2), ioErr.Idx)
	assert.EqualError(t, err, "block read 2: device on fire")
}
