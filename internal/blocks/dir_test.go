package blocks_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jcorbin/forthvm/internal/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Dir(t *testing.T) {
	dir := blocks.Dir(filepath.Join(t.TempDir(), "disk"))

	buf := []byte("xxxxxxxx")
	require.NoError(t, dir.ReadBlock(3, buf))
	assert.Equal(t, "        ", string(buf), "expected missing block to read as spaces")

	copy(buf, "hello")
	require.NoError(t, dir.WriteBlock(3, buf))
	data, err := os.ReadFile(filepath.Join(string(dir), "00003.bin"))
	require.NoError(t, err)
	assert.Equal(t, "hello   ", string(data))

	require.NoError(t, os.WriteFile(filepath.Join(string(dir), "00004.bin"), []byte("hi"), 0o644))
	require.NoError(t, dir.ReadBlock(4, buf))
	assert.Equal(t, "hi      ", string(buf), "expected short block to be space padded")
}
