// Package badger implements the registry Store on BadgerDB, an embedded
// pure-Go key-value store. It suits appliance-style single-node deployments
// that want the registry colocated with the recorder without a SQL engine.
//
// Open IDs come from a Badger sequence, which persists its high-water mark
// in the database itself, so IDs stay strictly increasing across restarts
// even when the process dies mid-lease.
package badger

import (
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// openSeqBandwidth is how many IDs a sequence lease reserves at a time.
// An unclean shutdown burns at most this many IDs; gaps are harmless
// because only monotonicity matters.
const openSeqBandwidth = 64

// BadgerStore implements the registry Store interface using BadgerDB.
type BadgerStore struct {
	db      *badgerdb.DB
	openSeq *badgerdb.Sequence

	// Cache statistics sampler, running only when a CacheMetrics sink
	// was supplied at open time.
	sampleStop chan struct{}
	sampleDone chan struct{}
}

// New opens (or creates) a BadgerDB-backed registry at the given directory
// path. Pass a nil CacheMetrics to disable cache instrumentation.
func New(path string, m CacheMetrics) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", path, err)
	}

	seq, err := db.GetSequence(keyOpenSeq(), openSeqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open open-id sequence: %w", err)
	}

	s := &BadgerStore{
		db:      db,
		openSeq: seq,
	}
	if m != nil {
		s.sampleStop = make(chan struct{})
		s.sampleDone = make(chan struct{})
		go s.sampleCaches(m)
	}
	return s, nil
}

// nextOpenID draws the next open ID from the sequence. Badger sequences
// start at 0; 0 is skipped so IDs are always positive.
func (s *BadgerStore) nextOpenID() (uint32, error) {
	v, err := s.openSeq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to advance open-id sequence: %w", err)
	}
	if v == 0 {
		v, err = s.openSeq.Next()
		if err != nil {
			return 0, fmt.Errorf("failed to advance open-id sequence: %w", err)
		}
	}
	return uint32(v), nil
}

// Close releases the sequence lease and closes the database. Releasing
// returns unused leased IDs without ever handing one out twice. The cache
// sampler is drained first so it never touches a closed database.
func (s *BadgerStore) Close() error {
	if s.sampleStop != nil {
		close(s.sampleStop)
		<-s.sampleDone
	}

	var firstErr error
	if err := s.openSeq.Release(); err != nil {
		firstErr = fmt.Errorf("failed to release open-id sequence: %w", err)
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close badger database: %w", err)
	}
	return firstErr
}
