package backend

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/grid"
)

// KVStore is a badger backed string store for dashboard state.
type KVStore struct {
	db *badger.DB
}

var _ grid.Store = (*KVStore)(nil)

// OpenKVStore opens the store in dir, or an in-memory store if dir is empty.
func OpenKVStore(dir string, l *zap.Logger) (*KVStore, error) {
	if l == nil {
		l = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{l.Sugar()}).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	return &KVStore{db: db}, nil
}

func (s *KVStore) Close() error {
	return s.db.Close()
}

// Get returns grid.ErrNotFound when key has never been set.
func (s *KVStore) Get(key string) (string, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", grid.ErrNotFound
	} else if err != nil {
		return "", fmt.Errorf("reading %q: %w", key, err)
	}
	return string(value), nil
}

func (s *KVStore) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (b badgerLogger) Errorf(f string, v ...any)   { b.s.Errorf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...any) { b.s.Warnf(f, v...) }
func (b badgerLogger) Infof(f string, v ...any)    { b.s.Infof(f, v...) }
func (b badgerLogger) Debugf(f string, v ...any)   { b.s.Debugf(f, v...) }
