package repo

import (
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/objstore/castore/hash"
)

// RefStore is the external collaborator the transaction lifecycle hands
// pending ref updates to at commit time. A nil target in Apply's map
// means the corresponding ref should be deleted. Apply is expected to
// publish the whole batch atomically with respect to readers.
type RefStore interface {
	Apply(updates map[string]*hash.Checksum) error
}

// Options configures a Repository: a small struct of knobs passed
// alongside the backing filesystem rather than a long argument list.
type Options struct {
	// Mode selects BARE or ArchiveZ2 storage for content objects.
	Mode hash.Mode

	// ParentStore is consulted on existence-probe misses and scanned
	// ahead of this repo by the devino scan. Nil means this repo has no
	// parent.
	ParentStore *Repository

	// RefStore receives the pending ref updates of every committed
	// transaction. Nil is fine as long as no transaction ever stages a
	// ref.
	RefStore RefStore
}

// Repository is the process-wide open state of a commit-engine store:
// the backing filesystem, storage mode, optional parent for lookup
// fallback, and the state of any active transaction.
type Repository struct {
	fs   billy.Filesystem
	opts Options

	mu            sync.Mutex
	inTransaction bool
	stats         txStats
	pendingRefs   map[string]*hash.Checksum
	devino        *devinoCache
	async         *asyncPool
}

// New opens a Repository rooted at fs. The caller is responsible for
// fs already containing (or being able to create) "objects/" and
// "tmp/" at its root.
func New(fs billy.Filesystem, opts Options) (*Repository, error) {
	if err := fs.MkdirAll(objectsDir, 0777); err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(tmpDir, 0777); err != nil {
		return nil, err
	}

	return &Repository{fs: fs, opts: opts}, nil
}

// Mode reports the storage mode this repository was opened with.
func (r *Repository) Mode() hash.Mode {
	return r.opts.Mode
}

// Filesystem exposes the backing billy.Filesystem, for callers that
// need to read arbitrary paths (e.g. the ingest walker's source tree,
// when it happens to be rooted at the same fs).
func (r *Repository) Filesystem() billy.Filesystem {
	return r.fs
}

// Stats returns a snapshot of the current transaction's counters.
func (r *Repository) Stats() TransactionStats {
	return r.stats.snapshot()
}

// InTransaction reports whether a transaction is currently active.
func (r *Repository) InTransaction() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inTransaction
}

func (r *Repository) requireTransaction() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inTransaction {
		return ErrNotInTransaction
	}
	return nil
}

// osPath joins relpath onto this repository's real filesystem root, for
// the handful of operations (xattrs) that must bypass the billy
// abstraction and operate on an actual OS path.
func (r *Repository) osPath(relpath string) string {
	return r.fs.Join(r.fs.Root(), relpath)
}
