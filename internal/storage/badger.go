package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// BadgerStorage keeps session state in an embedded Badger key/value store.
// Keys are "<scope>/<key>".
type BadgerStorage struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerStorage opens the store in dir. An empty dir keeps everything in memory.
func NewBadgerStorage(dir string, logger *zap.Logger) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	logger.Info("Badger storage ready", zap.String("dir", dir))
	return &BadgerStorage{db: db, logger: logger}, nil
}

func badgerKey(scope, key string) []byte {
	return []byte(scope + "/" + key)
}

func (s *BadgerStorage) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(scope, key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", scope, key, err)
	}
	return result, nil
}

func (s *BadgerStorage) Put(ctx context.Context, scope, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(scope, key), value)
	})
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *BadgerStorage) Delete(ctx context.Context, scope, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(scope, key))
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}
