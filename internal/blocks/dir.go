package blocks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is a Device that stores each block as a file named like "00042.bin"
// under a directory. Blocks that do not exist yet read as spaces.
type Dir string

func (d Dir) path(idx uint16) string {
	return filepath.Join(string(d), fmt.Sprintf("%05d.bin", idx))
}

// ReadBlock reads block idx into p; short files are padded with spaces.
func (d Dir) ReadBlock(idx uint16, p []byte) error {
	data, err := os.ReadFile(d.path(idx))
	if errors.Is(err, fs.ErrNotExist) {
		fill(p, ' ')
		return nil
	} else if err != nil {
		return err
	}
	n := copy(p, data)
	fill(p[n:], ' ')
	return nil
}

// WriteBlock writes p as the content of block idx, creating the directory as
// needed.
func (d Dir) WriteBlock(idx uint16, p []byte) error {
	if err := os.MkdirAll(string(d), 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.path(idx), p, 0o644)
}
