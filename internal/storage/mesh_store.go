package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/annel0/voxel-export/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

// ErrStoreClosed возвращается при обращении к закрытому хранилищу
var ErrStoreClosed = errors.New("хранилище мешей закрыто")

const meshKeyPrefix = "mesh:"

// MeshStore кэширует готовые меши чанков в BadgerDB.
// Значения хранятся как JSON, сжатый zstd; ключ — mesh:<x>:<z>:<configHash>.
type MeshStore struct {
	db      *badger.DB
	dbPath  string
	codec   *PayloadCodec
	mutex   sync.RWMutex
	isReady bool
}

// NewMeshStore открывает (или создаёт) кэш мешей в директории dataPath
func NewMeshStore(dataPath string) (*MeshStore, error) {
	dbPath := filepath.Join(dataPath, "meshes")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return openMeshStore(opts, dbPath)
}

// NewInMemoryMeshStore создаёт кэш, живущий только в памяти процесса
func NewInMemoryMeshStore() (*MeshStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openMeshStore(opts, "")
}

func openMeshStore(opts badger.Options, dbPath string) (*MeshStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	codec, err := NewPayloadCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MeshStore{
		db:      db,
		dbPath:  dbPath,
		codec:   codec,
		isReady: true,
	}, nil
}

// Close закрывает хранилище; повторный вызов ничего не делает
func (s *MeshStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.codec.Close()
	return s.db.Close()
}

func meshKey(coords vec.Vec2, configHash string) []byte {
	return []byte(MeshKey(coords, configHash))
}

// Save сериализует v и сохраняет его для чанка coords
func (s *MeshStore) Save(coords vec.Vec2, configHash string, v interface{}) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrStoreClosed
	}

	compressed, err := s.codec.Encode(v)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(meshKey(coords, configHash), compressed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load читает меш чанка в dst. Возвращает false, если записи нет.
func (s *MeshStore) Load(coords vec.Vec2, configHash string, dst interface{}) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return false, ErrStoreClosed
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(meshKey(coords, configHash))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	if err := s.codec.Decode(compressed, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Delete удаляет запись чанка; отсутствие записи не ошибка
func (s *MeshStore) Delete(coords vec.Vec2, configHash string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrStoreClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(meshKey(coords, configHash))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// Count возвращает число сохранённых мешей
func (s *MeshStore) Count() (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return 0, ErrStoreClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(meshKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DropStale удаляет меши, собранные с другой конфигурацией, и возвращает их число
func (s *MeshStore) DropStale(keepHash string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return 0, ErrStoreClosed
	}

	var stale [][]byte
	suffix := []byte(":" + keepHash)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(meshKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if !bytes.HasSuffix(key, suffix) || strings.Count(string(key), ":") != 3 {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка обхода BadgerDB: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return len(stale), nil
}
