package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/objstore/castore/internal/bufpool"
	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/object"
	"github.com/objstore/castore/trace"
)

// WriteCommit assembles and writes a COMMIT object pointing at
// rootContents/rootMeta, optionally chained to parent. branch names
// the ref the caller intends to point at the new commit; it is
// required but not serialized — the commit variant carries no branch
// field, and the ref update itself is staged separately with
// TransactionSetRef before the transaction commits.
func (r *Repository) WriteCommit(ctx context.Context, branch string, parent *hash.Checksum, subject, body string, rootContents, rootMeta hash.Checksum) (hash.Checksum, error) {
	if err := r.requireTransaction(); err != nil {
		return hash.Checksum{}, err
	}
	if branch == "" {
		return hash.Checksum{}, fmt.Errorf("repo: write commit: empty branch")
	}

	c := object.Commit{
		Subject:      subject,
		Body:         body,
		Timestamp:    uint64(time.Now().UTC().Unix()),
		RootContents: rootContents,
		RootMeta:     rootMeta,
	}
	if parent != nil {
		c.Parent = *parent
	}

	buf := bufpool.GetBytesBuffer()
	defer bufpool.PutBytesBuffer(buf)
	if err := object.EncodeCommit(buf, c); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: encode commit: %w", err)
	}

	csum, err := r.WriteMetadata(ctx, hash.Commit, buf)
	if err != nil {
		return hash.Checksum{}, err
	}

	trace.General.Printf("wrote commit %s for %s", csum, branch)
	return csum, nil
}
