//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

// openFileNoFollow opens path for writing with O_NOFOLLOW so a symlink
// planted at the temp name is never written through. O_CLOEXEC keeps the
// FD out of children.
//
// Note: O_NOFOLLOW only covers the final component. The output directory
// itself is checked by PrepareOutputDir before any temp file is created.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		// ELOOP means the final component is a symlink
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
