package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

var (
	archiveSuffix = regexp.MustCompile(`w?arc(\.gz)?$`)
	sidecarSuffix = regexp.MustCompile(`warc\.meta(\.gz)?$`)
	cdxjSuffix    = regexp.MustCompile(`\.cdxj$`)
)

// ValidateInputFile checks that path names an existing regular file.
func ValidateInputFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("input path is required")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.NewFileNotFound(path)
	}
	if err != nil {
		return errors.NewIO(path, err)
	}
	if info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("%s is a directory", path))
	}
	return nil
}

// PrepareOutputDir creates dir if it does not exist.
func PrepareOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.NewInvalidRequest("output directory is required")
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("%s is not a directory", dir))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO(dir, err)
	}
	return nil
}

// SidecarName maps an archive file name to its sidecar name:
// "x.warc.gz" becomes "x.warc.meta.gz", "x.arc" becomes "x.warc.meta.gz".
func SidecarName(archive string, gzip bool) (string, error) {
	base := filepath.Base(archive)
	repl := "warc.meta.gz"
	if !gzip {
		repl = "warc.meta"
	}
	return rename(base, archiveSuffix, repl, "an archive name ending in warc, arc, warc.gz or arc.gz")
}

// IndexName maps a sidecar file name to its index name.
func IndexName(sidecar string) (string, error) {
	return rename(filepath.Base(sidecar), sidecarSuffix, "cdxj", "a sidecar name ending in warc.meta or warc.meta.gz")
}

// MergedName maps an original index file name to the merged index name.
func MergedName(index string) (string, error) {
	return rename(filepath.Base(index), cdxjSuffix, "_merged.cdxj", "an index name ending in .cdxj")
}

func rename(base string, re *regexp.Regexp, repl, want string) (string, error) {
	loc := re.FindStringIndex(base)
	if loc == nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%q: expected %s", base, want))
	}
	return base[:loc[0]] + repl, nil
}

// sameFile reports whether a and b resolve to the same path.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return false
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
