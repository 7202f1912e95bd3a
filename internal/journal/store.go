// Package journal сохраняет поток изменений навигатора в BadgerDB,
// держит сжатые снимки состояния и раздаёт изменения репликам через NATS.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/navigator"
)

var ErrStoreClosed = errors.New("journal: store is closed")

const (
	recordPrefix   = "journal:"
	snapshotPrefix = "snapshot:"
	sessionPrefix  = "session:"
)

// Options — параметры открытия хранилища
type Options struct {
	Path     string // Каталог BadgerDB
	InMemory bool   // Без диска (тесты, реплики)
	Session  string // Пустая строка — новая сессия с UUID
	ReadOnly bool   // Только чтение: сессия не регистрируется
}

// SessionInfo — описание сессии журнала
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store — журнал изменений одной сессии поверх BadgerDB
type Store struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	session string
	logger  *logging.Logger
	mu      sync.RWMutex
	isReady bool
}

// Open открывает хранилище и регистрирует сессию
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Отключаем логирование BadgerDB
	if opts.ReadOnly {
		bopts = bopts.WithReadOnly(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	session := opts.Session
	if session == "" {
		session = uuid.NewString()
	}

	s := &Store{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		session: session,
		logger:  logging.GetJournalLogger(),
		isReady: true,
	}
	if opts.ReadOnly {
		return s, nil
	}
	if err := s.registerSession(); err != nil {
		s.Close()
		return nil, err
	}
	s.logger.Info("Журнал открыт: сессия %s (в памяти: %v)", session, opts.InMemory)
	return s, nil
}

// Session возвращает идентификатор текущей сессии
func (s *Store) Session() string {
	return s.session
}

// Close закрывает хранилище
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

func (s *Store) registerSession() error {
	key := []byte(sessionPrefix + s.session)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(SessionInfo{ID: s.session, CreatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func recordKey(session string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", recordPrefix, session, seq))
}

func recordsOf(session string) []byte {
	return []byte(recordPrefix + session + ":")
}

// Append сохраняет запись; реализует navigator.MutationSink
func (s *Store) Append(_ context.Context, m navigator.Mutation) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isReady {
		return ErrStoreClosed
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи %d: %w", m.Seq, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(s.session, m.Seq), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load читает записи сессии с номером больше after в порядке номеров
func (s *Store) Load(session string, after uint64) ([]navigator.Mutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isReady {
		return nil, ErrStoreClosed
	}

	var records []navigator.Mutation
	prefix := recordsOf(session)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		for it.Seek(recordKey(session, after+1)); it.ValidForPrefix(prefix); it.Next() {
			var m navigator.Mutation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			})
			if err != nil {
				return fmt.Errorf("ошибка десериализации %s: %w", it.Item().Key(), err)
			}
			records = append(records, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveSnapshot сохраняет сжатый снимок состояния сессии
func (s *Store) SaveSnapshot(session string, state navigator.State) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isReady {
		return ErrStoreClosed
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("ошибка сериализации снимка: %w", err)
	}
	compressed := s.encoder.EncodeAll(data, nil)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotPrefix+session), compressed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения снимка: %w", err)
	}
	s.logger.Debug("Снимок сессии %s: seq=%d, записей=%d, %d -> %d байт",
		session, state.Seq, len(state.Mutations), len(data), len(compressed))
	return nil
}

// LoadSnapshot читает снимок; false — снимка нет
func (s *Store) LoadSnapshot(session string) (navigator.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state navigator.State
	if !s.isReady {
		return state, false, ErrStoreClosed
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + session))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return state, false, nil
	}
	if err != nil {
		return state, false, fmt.Errorf("ошибка чтения снимка: %w", err)
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return state, false, fmt.Errorf("ошибка распаковки снимка: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("ошибка десериализации снимка: %w", err)
	}
	return state, true, nil
}

// Compact удаляет записи сессии с номером не больше upTo
func (s *Store) Compact(session string, upTo uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isReady {
		return 0, ErrStoreClosed
	}

	var keys [][]byte
	prefix := recordsOf(session)
	last := recordKey(session, upTo)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) > string(last) {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("ошибка удаления записи: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка сжатия журнала: %w", err)
	}
	return len(keys), nil
}

// Sessions возвращает известные сессии по времени создания
func (s *Store) Sessions() ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isReady {
		return nil, ErrStoreClosed
	}

	var sessions []SessionInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var info SessionInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return err
			}
			sessions = append(sessions, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}
