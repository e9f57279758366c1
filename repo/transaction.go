package repo

import (
	"fmt"
	"os"
	"path"

	"github.com/objstore/castore/trace"
)

// lockPath is the advisory lock symlink's path, relative to the repo
// root.
const lockPath = "transaction"

// PrepareTransaction begins a new transaction. resume reports whether a
// previous session's lock symlink was found still in place — a crash
// marker, not a mutual-exclusion mechanism, left over from an unclean
// prior prepare/commit/abort cycle.
func (r *Repository) PrepareTransaction() (resume bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inTransaction {
		return false, ErrAlreadyInTransaction
	}

	if fi, statErr := r.fs.Lstat(lockPath); statErr == nil && fi.Mode()&os.ModeSymlink != 0 {
		resume = true
		if err := r.fs.Remove(lockPath); err != nil {
			return false, fmt.Errorf("repo: remove stale lock: %w", err)
		}
	}

	r.stats.reset()
	r.pendingRefs = nil
	r.devino = nil

	target := fmt.Sprintf("pid=%d", os.Getpid())
	if err := r.fs.Symlink(target, lockPath); err != nil {
		return resume, fmt.Errorf("repo: create lock symlink: %w", err)
	}

	r.inTransaction = true
	trace.General.Printf("transaction prepared (resume=%v)", resume)
	return resume, nil
}

// CommitTransaction wipes tmp/, clears the devino cache, hands any
// pending ref updates to the configured RefStore, and releases the
// lock. Failure up to and including the ref update leaves the
// transaction open so the caller may retry or abort. Once the refs are
// applied the transaction is closed; if removing the lock symlink then
// fails, the error is returned and the symlink stays, so the next
// PrepareTransaction reports a resume.
func (r *Repository) CommitTransaction() (TransactionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inTransaction {
		return TransactionStats{}, ErrNotInTransaction
	}

	if err := r.cleanTmpDir(); err != nil {
		return TransactionStats{}, err
	}

	r.devino = nil

	if len(r.pendingRefs) > 0 {
		if r.opts.RefStore == nil {
			return TransactionStats{}, fmt.Errorf("repo: commit transaction: %d pending ref update(s) but no RefStore configured", len(r.pendingRefs))
		}
		if err := r.opts.RefStore.Apply(r.pendingRefs); err != nil {
			return TransactionStats{}, fmt.Errorf("repo: apply refs: %w", err)
		}
	}
	r.pendingRefs = nil

	r.inTransaction = false
	if err := r.fs.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return TransactionStats{}, fmt.Errorf("repo: remove lock symlink: %w", err)
	}

	stats := r.stats.snapshot()
	trace.General.Printf("transaction committed: %+v", stats)
	return stats, nil
}

// AbortTransaction is a no-op if no transaction is active. Otherwise it
// wipes tmp/, clears the devino cache, and drops pending ref updates
// without writing them. Already-installed objects are never rolled
// back: they are content-addressed and remain valid for a future
// commit.
func (r *Repository) AbortTransaction() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inTransaction {
		return nil
	}

	if err := r.cleanTmpDir(); err != nil {
		return err
	}

	r.devino = nil
	r.pendingRefs = nil
	r.inTransaction = false

	if err := r.fs.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("repo: remove lock symlink: %w", err)
	}

	trace.General.Print("transaction aborted")
	return nil
}

// cleanTmpDir recursively discards everything under tmp/.
func (r *Repository) cleanTmpDir() error {
	entries, err := r.fs.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("repo: read %s: %w", tmpDir, err)
	}

	for _, e := range entries {
		if err := r.removeAll(path.Join(tmpDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) removeAll(p string) error {
	fi, err := r.fs.Lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if fi.IsDir() {
		entries, err := r.fs.ReadDir(p)
		if err != nil {
			return fmt.Errorf("repo: read %s: %w", p, err)
		}
		for _, e := range entries {
			if err := r.removeAll(path.Join(p, e.Name())); err != nil {
				return err
			}
		}
	}

	if err := r.fs.Remove(p); err != nil {
		return fmt.Errorf("repo: remove %s: %w", p, err)
	}
	return nil
}
