// Package config holds small, validated value types shared by the
// transaction and ref-staging layers.
package config

import (
	"errors"
	"strings"
)

// ErrRefSpecMalformedSeparator is returned when a refspec has more than
// one ":" separator.
var ErrRefSpecMalformedSeparator = errors.New("malformed refspec, separator is wrong")

const refSpecSeparator = ":"

// RefSpec names a ref in a repository, optionally qualified with the
// remote it belongs to: "[remote:]name".
//
// https://git-scm.com/book/es/v2/Git-Internals-The-Refspec (format only;
// this repository has no remotes/fetch semantics, see the commit
// engine's Non-goals).
type RefSpec string

// Validate reports whether the RefSpec is well formed.
func (s RefSpec) Validate() error {
	if strings.Count(string(s), refSpecSeparator) > 1 {
		return ErrRefSpecMalformedSeparator
	}

	return nil
}

// Remote returns the remote portion of the refspec, or "" if the
// refspec names a local ref directly.
func (s RefSpec) Remote() string {
	if i := strings.Index(string(s), refSpecSeparator); i >= 0 {
		return string(s)[:i]
	}

	return ""
}

// Name returns the ref name portion of the refspec.
func (s RefSpec) Name() string {
	if i := strings.Index(string(s), refSpecSeparator); i >= 0 {
		return string(s)[i+1:]
	}

	return string(s)
}

func (s RefSpec) String() string {
	return string(s)
}
