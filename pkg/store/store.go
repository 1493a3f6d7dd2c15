// Package store keeps a persistent journal of edits made through input
// fields.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"src.vapo.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[store] ")

// Store is the permanent storage of the change journal.
type Store interface {
	NextChangeSeq() (int, error)
	AddChange(c Change) (int, error)
	Changes(from, upto int) ([]Change, error)
	Close() error
}

const dbTimeout = time.Second

// Functions run in a single transaction when a database is opened.
var initDB = map[string](func(*bolt.Tx) error){}

type dbStore struct {
	db *bolt.DB
}

// NewStore opens the database at the given path, creating it if it does not
// exist.
func NewStore(dbname string) (Store, error) {
	db, err := bolt.Open(dbname, 0644, &bolt.Options{Timeout: dbTimeout})
	if err != nil {
		return nil, err
	}
	st, err := NewStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// NewStoreFromDB creates a Store using an already opened database.
func NewStoreFromDB(db *bolt.DB) (Store, error) {
	logger.Debugw("initializing store", "path", db.Path())
	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dbStore{db}, nil
}

func (s *dbStore) Close() error {
	return s.db.Close()
}
