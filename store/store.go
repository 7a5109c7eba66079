// Package store persists fetched pages to the local filesystem.
package store

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/pagegrab/models"
)

// isoMillis matches JavaScript's Date.toISOString output.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Save writes content to path, creating every missing parent directory.
// An existing file is truncated and overwritten. Failures are *models.IOError.
func Save(content []byte, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Namer derives output paths of the form <Dir>/<Prefix>_<timestamp>.html.
type Namer struct {
	Dir    string
	Prefix string

	// Now supplies the timestamp; nil means time.Now.
	Now func() time.Time
}

// NewNamer returns a Namer using the wall clock.
func NewNamer(dir, prefix string) Namer {
	return Namer{Dir: dir, Prefix: prefix, Now: time.Now}
}

// Path returns the output path for the current instant. Two calls within
// the same millisecond yield the same path.
func (n Namer) Path() string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return filepath.Join(n.Dir, n.Prefix+"_"+Timestamp(now())+".html")
}

// Timestamp formats t as UTC ISO-8601 with millisecond precision and
// replaces ":" and "." with "-" so the result is safe in file names.
func Timestamp(t time.Time) string {
	s := t.UTC().Format(isoMillis)
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}
