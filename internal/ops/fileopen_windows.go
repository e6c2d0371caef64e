//go:build windows

package ops

import (
	"os"
)

// openFileNoFollow opens a file for writing. O_NOFOLLOW does not exist on
// Windows; Commit still refuses a symlinked destination.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
