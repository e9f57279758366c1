package repo

import "sync"

// TransactionStats is a point-in-time snapshot of a transaction's
// counters, returned by Repository.Stats. Counters only ever advance
// during the transaction that produced them; the ratio of *Written to
// *Total measures dedup effectiveness.
type TransactionStats struct {
	MetadataObjectsWritten int64
	MetadataObjectsTotal   int64
	ContentObjectsWritten  int64
	ContentObjectsTotal    int64
	ContentBytesWritten    int64
}

// txStats is the mutable, mutex-guarded counter block a Repository
// carries for its active transaction. It is never copied by value;
// only its snapshot (TransactionStats) is.
type txStats struct {
	mu    sync.Mutex
	stats TransactionStats
}

func (s *txStats) snapshot() TransactionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *txStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = TransactionStats{}
}

func (s *txStats) recordMetadata(installed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.MetadataObjectsTotal++
	if installed {
		s.stats.MetadataObjectsWritten++
	}
}

func (s *txStats) recordContent(installed bool, declaredLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ContentObjectsTotal++
	if installed {
		s.stats.ContentObjectsWritten++
		s.stats.ContentBytesWritten += declaredLength
	}
}
