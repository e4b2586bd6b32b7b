// Package store owns the persisted document: a single JSON blob in an
// embedded BadgerDB, loaded once at startup and re-serialized whole after
// every mutation.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const documentKey = "watchquest:document"

// Options configures the underlying BadgerDB.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string
	// InMemory runs the database without disk persistence, for tests.
	InMemory bool
}

// WriteError marks a failed durable write (quota, disk, IO) so callers can
// surface it separately from validation failures. The previous persisted copy
// is still intact on disk.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("persist document: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Store is the single source of truth: the in-memory document plus the
// durable copy. It assumes one writer; callers serialize mutations.
type Store struct {
	db  *badger.DB
	doc *Document
}

// Open opens the BadgerDB backing the store. Call Load before use.
func Open(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying database so the session pointer can share it.
func (s *Store) DB() *badger.DB { return s.db }

// Doc returns the in-memory document. Valid after Load.
func (s *Store) Doc() *Document { return s.doc }

// Load reads the persisted document, runs the migration chain and lazily
// purges expired strikes. A missing document is seeded with demo data; a
// document that exists but cannot be decoded is a hard error, never silently
// replaced.
func (s *Store) Load(now time.Time) error {
	blob, err := s.read()
	if errors.Is(err, badger.ErrKeyNotFound) {
		s.doc = SeedDocument(now)
		return s.Persist()
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(blob, &raw); err != nil {
		return fmt.Errorf("document is corrupt: %w", err)
	}
	Migrate(raw)

	migrated, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-encode migrated document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(migrated, &doc); err != nil {
		return fmt.Errorf("decode migrated document: %w", err)
	}

	purgeExpiredStrikes(&doc, now)
	s.doc = &doc
	return s.Persist()
}

// Persist serializes the whole document and writes it in one Set, so the
// durable copy is replaced atomically or not at all.
func (s *Store) Persist() error {
	blob, err := json.Marshal(s.doc)
	if err != nil {
		return &WriteError{Err: err}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(documentKey), blob)
	})
	if err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Reload discards the in-memory document and restores the last persisted
// copy. Used to roll back after a failed Persist.
func (s *Store) Reload() error {
	blob, err := s.read()
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(blob, &doc); err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	s.doc = &doc
	return nil
}

// Reset deletes the persisted document and drops the in-memory copy.
func (s *Store) Reset() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(documentKey))
	})
	if err != nil {
		return &WriteError{Err: err}
	}
	s.doc = nil
	return nil
}

func (s *Store) read() ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(documentKey))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	return blob, err
}

// purgeExpiredStrikes drops strikes past their expiration horizon. Evaluated
// lazily at load time; there is no background timer.
func purgeExpiredStrikes(doc *Document, now time.Time) {
	nowMillis := now.UnixMilli()
	for _, user := range doc.Users {
		active := user.Strikes[:0]
		for _, strike := range user.Strikes {
			if strike.ExpiresAt > nowMillis {
				active = append(active, strike)
			}
		}
		user.Strikes = active
	}
}
