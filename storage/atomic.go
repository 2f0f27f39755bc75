package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// tempPattern names the sibling file output is staged in before the rename.
const tempPattern = ".ytscribe-*.tmp"

// pendingFile is output staged next to its final path. Readers of the final
// path see either the previous content or the complete new content.
type pendingFile struct {
	*os.File
	target string
}

// stage creates the parent directories of target and a temp file beside it.
func stage(target string) (*pendingFile, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &pendingFile{File: f, target: target}, nil
}

// publish flushes the staged file and renames it over the target.
func (p *pendingFile) publish() error {
	err := p.Sync()
	if err == nil {
		err = p.Chmod(0o644)
	}
	if closeErr := p.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(p.Name(), p.target)
	}
	if err != nil {
		os.Remove(p.Name())
		return fmt.Errorf("publish %s: %w", p.target, err)
	}
	return nil
}

// discard drops the staged file. The target is not touched.
func (p *pendingFile) discard() {
	p.Close()
	os.Remove(p.Name())
}

// WriteFile streams fill's output to path atomically. It creates missing
// parent directories and replaces an existing file. When fill or the commit
// fails the target is left untouched and the returned *StorageError matches
// ErrWriteFailed.
func WriteFile(path, entity string, fill func(io.Writer) error) error {
	p, err := stage(path)
	if err != nil {
		return writeError(entity, path, err)
	}
	if err := fill(p); err != nil {
		p.discard()
		return writeError(entity, path, err)
	}
	if err := p.publish(); err != nil {
		return writeError(entity, path, err)
	}
	return nil
}

// WriteBytes is WriteFile for content already in memory.
func WriteBytes(path, entity string, data []byte) error {
	return WriteFile(path, entity, func(w io.Writer) error {
		n, err := w.Write(data)
		if err == nil && n != len(data) {
			err = io.ErrShortWrite
		}
		return err
	})
}
