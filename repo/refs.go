package repo

import (
	"fmt"

	"github.com/objstore/castore/config"
	"github.com/objstore/castore/hash"
)

// TransactionSetRef stages a ref update to be applied atomically when
// the active transaction commits. A nil target stages a deletion.
func (r *Repository) TransactionSetRef(ref string, target *hash.Checksum) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inTransaction {
		return ErrNotInTransaction
	}
	if ref == "" {
		return fmt.Errorf("repo: set ref: empty name")
	}

	if r.pendingRefs == nil {
		r.pendingRefs = make(map[string]*hash.Checksum)
	}
	r.pendingRefs[ref] = target
	return nil
}

// TransactionSetRefspec is TransactionSetRef for a parsed RefSpec. The
// full "[remote:]name" string is used as the stored key so refs from
// distinct remotes never collide.
func (r *Repository) TransactionSetRefspec(spec config.RefSpec, target *hash.Checksum) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("repo: set refspec: %w", err)
	}
	return r.TransactionSetRef(spec.String(), target)
}
