package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

var (
	sessionKey = []byte("session/current")
	exitPrefix = []byte("exit/")
)

// DB wraps the embedded badger store that keeps client-side state between runs
type DB struct {
	*badger.DB
	log *slog.Logger
	now func() time.Time
}

// ExitRecord is one accepted exit submission from this client.
type ExitRecord struct {
	EntryID    string             `json:"entryId"`
	Payload    models.ExitPayload `json:"payload"`
	RecordedAt time.Time          `json:"recordedAt"`
}

// Open opens the store under dir. An empty dir opens an in-memory store.
func Open(dir string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	log.Debug("local store opened", "dir", dir, "in_memory", dir == "")
	return &DB{DB: db, log: log, now: time.Now}, nil
}

// Close closes the store
func (db *DB) Close() error {
	return db.DB.Close()
}

// LoadSession returns the stored session blob, nil if none.
func (db *DB) LoadSession() ([]byte, error) {
	var blob []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	return blob, err
}

// SaveSession replaces the stored session blob.
func (db *DB) SaveSession(blob []byte) error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, blob)
	})
}

// DeleteSession removes the stored session blob.
func (db *DB) DeleteSession() error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey)
	})
}

func exitKey(id string) []byte {
	return append(append([]byte{}, exitPrefix...), id...)
}

// ExitRecorded reports whether an exit for the entry was accepted from this client.
func (db *DB) ExitRecorded(id string) (bool, error) {
	found := false
	err := db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(exitKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// RecordExit journals an accepted exit submission. The first record for an entry wins.
func (db *DB) RecordExit(id string, p models.ExitPayload) error {
	rec, err := json.Marshal(ExitRecord{EntryID: id, Payload: p, RecordedAt: db.now().UTC()})
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(exitKey(id))
		if err == nil {
			db.log.Warn("exit already journaled", "entry_id", id)
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(exitKey(id), rec)
	})
}

// ExitRecords lists every journaled exit, ordered by entry id.
func (db *DB) ExitRecords() ([]ExitRecord, error) {
	var out []ExitRecord
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(exitPrefix); it.ValidForPrefix(exitPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec ExitRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}
