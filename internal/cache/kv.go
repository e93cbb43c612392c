package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"dirscout/internal/tool/probe"

	"github.com/charmbracelet/log"
	badger "github.com/dgraph-io/badger/v4"
)

// Key namespaces inside the badger store. The KV tier is unsuitable
// for bulk data, so only size-bounded cache entries land under
// kvCachePrefix; tool availability records live under kvToolPrefix.
const (
	kvCachePrefix = "dirscout/cache/"
	kvToolPrefix  = "dirscout/tool/"
)

// KVConfig configures the embedded badger store.
type KVConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string
	// InMemory disables disk persistence; used in tests.
	InMemory bool
	Logger   *log.Logger
}

// KV is the lightweight key-value tier, an embedded badger database.
// It doubles as the persistent store for tool availability records.
type KV struct {
	db *badger.DB
}

// OpenKV opens the badger database, creating the directory if needed.
func OpenKV(cfg KVConfig) (*KV, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent kv store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create kv directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	return &KV{db: db}, nil
}

// Close releases the underlying database.
func (k *KV) Close() error { return k.db.Close() }

func (k *KV) get(key string) ([]byte, bool, error) {
	var out []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (k *KV) set(key string, value []byte) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (k *KV) delete(key string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (k *KV) scan(prefix string, fn func(key string, value []byte) error) error {
	return k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.Key()), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// DropAll removes every key, cache entries and tool records alike.
func (k *KV) DropAll() error { return k.db.DropAll() }

// -- probe.RecordStore --

// GetRecord implements probe.RecordStore.
func (k *KV) GetRecord(identity string) (probe.Record, bool, error) {
	data, ok, err := k.get(kvToolPrefix + identity)
	if err != nil || !ok {
		return probe.Record{}, false, err
	}
	var rec probe.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record is treated as absent and removed.
		_ = k.delete(kvToolPrefix + identity)
		return probe.Record{}, false, nil
	}
	return rec, true, nil
}

// PutRecord implements probe.RecordStore.
func (k *KV) PutRecord(rec probe.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return k.set(kvToolPrefix+rec.Identity, data)
}

// DeleteRecord implements probe.RecordStore.
func (k *KV) DeleteRecord(identity string) error {
	return k.delete(kvToolPrefix + identity)
}

// badgerLogger adapts the application logger to badger's interface.
type badgerLogger struct {
	logger *log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
