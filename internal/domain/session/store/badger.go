// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/ManuGH/qrattend/internal/domain/session/model"
)

const maxTxnConflictRetries = 3

// BadgerStore persists sessions in an embedded Badger database so pending QR
// codes survive a restart of a single instance.
// Keys are "sess:<id>" holding the JSON session with a native TTL.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
	logger    zerolog.Logger
}

// OpenBadgerStore opens (or creates) the Badger directory at path.
// An empty path opens an in-memory database.
func OpenBadgerStore(path string, retention time.Duration, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger store: open: %w", err)
	}
	return &BadgerStore{db: db, retention: retention, logger: logger}, nil
}

func badgerKey(id string) []byte { return []byte("sess:" + id) }

func (b *BadgerStore) Insert(_ context.Context, s *model.Session) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("badger store: encode session: %w", err)
	}
	key := badgerKey(s.SessionID)
	return b.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, buf).WithTTL(entryTTL(s, b.retention)))
	})
}

// Take reads and deletes the entry inside one transaction. Concurrent takers of
// the same key conflict at commit; the loser retries and then sees ErrNotFound.
func (b *BadgerStore) Take(_ context.Context, id string) (*model.Session, error) {
	key := badgerKey(id)
	var (
		out       model.Session
		decodeErr error
	)
	err := b.update(func(txn *badger.Txn) error {
		decodeErr = nil
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			decodeErr = json.Unmarshal(val, &out)
			return nil
		}); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		b.logger.Warn().Err(decodeErr).Str("key", string(key)).Msg("dropping undecodable session entry")
		return nil, ErrNotFound
	}
	return &out, nil
}

func (b *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnConflictRetries; attempt++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("badger store: %w", err)
	}
	return err
}

// Sweep is a no-op: Badger drops entries past their TTL during reads and compaction.
func (b *BadgerStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (b *BadgerStore) Ping(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger store: closed")
	}
	return nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }
