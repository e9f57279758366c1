package repo

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// maxTempNameAttempts bounds the retry loop for randomly-named
// temp-symlink creation; past this the writer gives up with
// ErrExhausted rather than looping forever against a hostile or
// exhausted tmp directory.
const maxTempNameAttempts = 128

// createTempFile opens a new, uniquely-named regular file under tmp/,
// relying on the filesystem's own TempFile to guarantee the name is
// unused.
func (r *Repository) createTempFile() (billy.File, error) {
	f, err := r.fs.TempFile(tmpDir, "obj-")
	if err != nil {
		return nil, fmt.Errorf("repo: create tempfile: %w", err)
	}
	return f, nil
}

// createTempSymlink creates a symlink under tmp/ pointing at target,
// under a randomly generated name. It retries on name collisions up to
// maxTempNameAttempts times before failing with ErrExhausted.
func (r *Repository) createTempSymlink(target string) (string, error) {
	for i := 0; i < maxTempNameAttempts; i++ {
		name, err := randomTempName("obj-")
		if err != nil {
			return "", fmt.Errorf("repo: generate temp name: %w", err)
		}

		relpath := path.Join(tmpDir, name)
		if err := r.fs.Symlink(target, relpath); err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("repo: create temp symlink: %w", err)
		}
		return relpath, nil
	}

	return "", ErrExhausted
}

// removeTempFile best-effort unlinks the tempfile or temp-symlink at
// relpath. Errors are swallowed: this is always a cleanup path invoked
// after a prior failure, or a harmless duplicate of an install that
// already consumed the name.
func (r *Repository) removeTempFile(relpath string) {
	_ = r.fs.Remove(relpath)
}

func randomTempName(prefix string) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b[:]), nil
}

// installTempFile renames tmpRelPath into its final loose-object path,
// creating the fanout directory on demand. A rename landing on an
// already-occupied name is treated as a successful no-op: by
// content-addressing, whatever is already there is equivalent, so the
// tempfile is simply discarded.
func (r *Repository) installTempFile(tmpRelPath, objRelPath string) error {
	dir := path.Dir(objRelPath)
	if err := r.fs.MkdirAll(dir, 0777); err != nil {
		return fmt.Errorf("repo: mkdir %s: %w", dir, err)
	}

	if err := r.fs.Rename(tmpRelPath, objRelPath); err != nil {
		if os.IsExist(err) {
			r.removeTempFile(tmpRelPath)
			return nil
		}
		return fmt.Errorf("repo: install %s: %w", objRelPath, err)
	}

	return nil
}
