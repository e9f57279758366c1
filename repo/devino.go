package repo

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"

	"github.com/objstore/castore/hash"
)

type devinoKey struct {
	dev uint64
	ino uint64
}

// devinoCache maps (device, inode) pairs of already-stored loose FILE
// objects to their checksum, so ingest can skip re-hashing a
// hardlinked input.
type devinoCache struct {
	mu      sync.Mutex
	entries map[devinoKey]hash.Checksum
}

func newDevinoCache() *devinoCache {
	return &devinoCache{entries: make(map[devinoKey]hash.Checksum)}
}

func (c *devinoCache) lookup(dev, ino uint64) (hash.Checksum, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	csum, ok := c.entries[devinoKey{dev, ino}]
	return csum, ok
}

// insert replaces any prior entry at (dev, ino), matching the scan
// order requirement that a closer (more local) repo's entries win.
func (c *devinoCache) insert(dev, ino uint64, csum hash.Checksum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[devinoKey{dev, ino}] = csum
}

// ScanHardlinks populates the devino cache for the active transaction.
// Parent repositories are scanned first (depth-first, parent first) so
// this repo's entries override theirs.
func (r *Repository) ScanHardlinks(ctx context.Context) error {
	if err := r.requireTransaction(); err != nil {
		return err
	}
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	if r.devino == nil {
		r.devino = newDevinoCache()
	}
	cache := r.devino
	r.mu.Unlock()

	return r.scanHardlinksInto(ctx, cache)
}

func (r *Repository) scanHardlinksInto(ctx context.Context, cache *devinoCache) error {
	if r.opts.ParentStore != nil {
		if err := r.opts.ParentStore.scanHardlinksInto(ctx, cache); err != nil {
			return err
		}
	}

	fanouts, err := r.fs.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("repo: read %s: %w", objectsDir, err)
	}

	// Only ".file" entries are ever matched, even under ARCHIVE_Z2,
	// where that makes the scan a permanent no-op: ".filez" payloads
	// are compressed and can never share an inode with a working-tree
	// file anyway.
	const wantSuffix = ".file"

	for _, fanout := range fanouts {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}

		prefix := fanout.Name()
		fanoutPath := path.Join(objectsDir, prefix)

		files, err := r.fs.ReadDir(fanoutPath)
		if err != nil {
			return fmt.Errorf("repo: read %s: %w", fanoutPath, err)
		}

		for _, fi := range files {
			if fi.IsDir() {
				continue
			}

			name := fi.Name()
			dot := strings.IndexByte(name, '.')
			if dot != hash.Size*2-2 {
				continue
			}
			if name[dot:] != wantSuffix {
				continue
			}

			dev, ino, ok := devinoFromFileInfo(fi)
			if !ok {
				continue
			}

			csum, err := hash.FromHex(prefix + name[:dot])
			if err != nil {
				continue
			}

			cache.insert(dev, ino, csum)
		}
	}

	return nil
}

// DevinoLookup reports whether a checksum is already known for the
// given (dev, ino) pair, populated by a prior ScanHardlinks call. It is
// read-only during ingest; the cache itself is only ever mutated by
// ScanHardlinks, which must complete before ingest begins consulting
// it.
func (r *Repository) DevinoLookup(dev, ino uint64) (hash.Checksum, bool) {
	r.mu.Lock()
	cache := r.devino
	r.mu.Unlock()

	if cache == nil {
		return hash.Checksum{}, false
	}
	return cache.lookup(dev, ino)
}

func devinoFromFileInfo(fi os.FileInfo) (dev, ino uint64, ok bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return uint64(st.Dev), st.Ino, true //nolint:unconvert // Dev's width varies by platform.
}
