package ingest

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Verdict is the result of running a Filter over a single path.
type Verdict int

const (
	// Allow ingests the entry normally.
	Allow Verdict = iota
	// Skip omits the entry (and, for a directory, its entire subtree)
	// from the resulting tree.
	Skip
)

// Flag is a bitmask of per-modifier behavior switches.
type Flag uint32

const (
	// SkipXAttrs omits extended attributes from every object written
	// under this modifier, regardless of what Filter or the entry's own
	// attributes say.
	SkipXAttrs Flag = 1 << iota
)

// Info is the subset of an entry's attributes visible to a Filter
// callback before it commits to writing metadata.
type Info struct {
	UID  uint32
	GID  uint32
	Mode uint32
}

// Filter is consulted for every logical path during a directory walk.
// path is slash-separated and rooted, e.g. "/a/b/c"; the root directory
// itself is consulted as "/". A subdirectory's path is consulted twice:
// once by its parent, to decide whether to stage it at all, and once
// more when its own metadata is staged. Filter may mutate *info in place to
// override ownership/mode for the entry being staged; mutations are
// ignored if the verdict is Skip.
type Filter func(path string, info *Info) Verdict

// Modifier bundles a Filter with flags and caller-owned state. A
// Modifier can be shared across owners with Ref/Unref; Destroy runs
// exactly once, on the last release, so callers that attached non-GC
// resources (an open file, a counter to decrement) via UserData have a
// single, safe place to release them.
type Modifier struct {
	Flags    Flag
	Filter   Filter
	UserData any
	Destroy  func(any)

	refs      atomic.Int32
	closeOnce sync.Once
}

// NewCommitModifier returns a Modifier holding one reference. Callers
// that share it across owners take further references with Ref and drop
// them with Unref; Destroy(UserData) runs when the last reference is
// released.
func NewCommitModifier(flags Flag, filter Filter, userData any, destroy func(any)) *Modifier {
	m := &Modifier{Flags: flags, Filter: filter, UserData: userData, Destroy: destroy}
	m.refs.Store(1)
	return m
}

// Ref takes an additional reference and returns m for chaining.
func (m *Modifier) Ref() *Modifier {
	m.refs.Add(1)
	return m
}

// Unref drops a reference. Releasing the last one runs
// Destroy(UserData); extra Unref calls past zero are harmless because
// Close only ever fires once.
func (m *Modifier) Unref() {
	if m == nil {
		return
	}
	if m.refs.Add(-1) <= 0 {
		m.Close()
	}
}

// Close runs Destroy(UserData) exactly once, even if called
// concurrently or more than once. It is a no-op if Destroy is nil.
func (m *Modifier) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		if m.Destroy != nil {
			m.Destroy(m.UserData)
		}
	})
}

// renderPath joins a walk stack into the slash-rooted path a Filter
// callback sees.
func renderPath(stack []string) string {
	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}
