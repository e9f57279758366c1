// Package xattrs wraps github.com/pkg/xattr to read and write the
// extended attributes persisted on BARE-mode content and directory
// objects.
package xattrs

import (
	"errors"
	"runtime"
	"syscall"

	"github.com/pkg/xattr"
)

// Pair is a single extended attribute name/value pair, in the order
// they were read from (or are to be written to) a file.
type Pair struct {
	Name  string
	Value []byte
}

// supported reports whether the current platform implements extended
// attributes at all; on unsupported platforms every call below is a
// silent no-op, matching the "SKIP_XATTRS" flag's observable effect.
var supported = xattr.XATTR_SUPPORTED

func notSupported(err error) bool {
	if !supported {
		return true
	}

	var xerr *xattr.Error
	if !errors.As(err, &xerr) {
		return false
	}

	switch xerr.Err {
	case syscall.EINVAL, syscall.ENOTSUP, xattr.ENOATTR:
		return true
	}

	// Darwin reports ENOTSUP as a plain errno on some xattr namespaces.
	return runtime.GOOS == "darwin" && errors.Is(xerr.Err, syscall.ENOTSUP)
}

// List returns every extended attribute set on path, without following
// a trailing symlink.
func List(path string) ([]Pair, error) {
	names, err := xattr.LList(path)
	if err != nil {
		if notSupported(err) {
			return nil, nil
		}
		return nil, err
	}

	pairs := make([]Pair, 0, len(names))
	for _, name := range names {
		value, err := xattr.LGet(path, name)
		if err != nil {
			if notSupported(err) {
				continue
			}
			return nil, err
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}

	return pairs, nil
}

// Set applies pairs to path, without following a trailing symlink.
// Unsupported-filesystem errors are swallowed, matching List's
// best-effort contract.
func Set(path string, pairs []Pair) error {
	for _, p := range pairs {
		if err := xattr.LSet(path, p.Name, p.Value); err != nil {
			if notSupported(err) {
				continue
			}
			return err
		}
	}

	return nil
}
