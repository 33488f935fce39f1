package vocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dump writes one key per line in ascending order with CRLF line endings.
func Dump(w io.Writer, v *Vocabulary) error {
	bw := bufio.NewWriter(w)
	for _, k := range v.Keys() {
		if _, err := bw.WriteString(k + "\r\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpFile writes the vocabulary to path, creating parent directories.
func DumpFile(path string, v *Vocabulary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create vocabulary dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vocabulary file: %w", err)
	}
	if err := Dump(f, v); err != nil {
		f.Close()
		return fmt.Errorf("write vocabulary %s: %w", path, err)
	}
	return f.Close()
}
