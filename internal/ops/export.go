package ops

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

// outputFile is written under a temporary name next to its destination and
// renamed into place by Commit. Until then an existing file at the
// destination is left alone.
type outputFile struct {
	path string
	temp string
	file *os.File
	done bool
}

// createOutput opens a temp file for path.
func createOutput(path string) (*outputFile, error) {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	temp := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	f, err := openFileNoFollow(temp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewIO(temp, err)
	}
	return &outputFile{path: path, temp: temp, file: f}, nil
}

// Write implements io.Writer.
func (o *outputFile) Write(p []byte) (int, error) {
	return o.file.Write(p)
}

// Reset truncates the temp file so it can be written again from the start.
func (o *outputFile) Reset() error {
	if err := o.file.Truncate(0); err != nil {
		return errors.NewIO(o.temp, err)
	}
	if _, err := o.file.Seek(0, 0); err != nil {
		return errors.NewIO(o.temp, err)
	}
	return nil
}

// Commit syncs the temp file and renames it over the destination.
func (o *outputFile) Commit() error {
	if err := o.file.Sync(); err != nil {
		return errors.NewIO(o.temp, err)
	}
	// Close before the rename (required on Windows).
	if err := o.file.Close(); err != nil {
		return errors.NewIO(o.temp, err)
	}
	o.file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(o.path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("output path %s is a symlink", o.path))
	}

	if err := os.Rename(o.temp, o.path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(o.path); statErr == nil {
				return errors.NewInvalidRequest(fmt.Sprintf("%s already exists; overwriting is not supported on Windows", o.path))
			}
		}
		return errors.NewIO(o.path, err)
	}
	o.done = true
	return nil
}

// Close removes the temp file unless Commit succeeded. Safe to defer.
func (o *outputFile) Close() {
	if o.file != nil {
		o.file.Close()
		o.file = nil
	}
	if !o.done {
		os.Remove(o.temp)
	}
}
