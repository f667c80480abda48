package cache

import (
	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/vec"
)

// TieredCache: быстрый кеш поверх постоянного хранилища.
// Промах в hot читается из cold и дописывается в hot (read-through);
// запись идёт в оба уровня, ошибка hot только логируется.
type TieredCache struct {
	hot    MeshCache
	cold   MeshCache
	logger *logging.Logger
}

// NewTieredCache создаёт двухуровневый кеш
func NewTieredCache(hot, cold MeshCache) *TieredCache {
	return &TieredCache{hot: hot, cold: cold, logger: logging.GetStorageLogger()}
}

// Save записывает значение в cold, затем в hot
func (t *TieredCache) Save(coords vec.Vec2, configHash string, v interface{}) error {
	if err := t.cold.Save(coords, configHash, v); err != nil {
		return err
	}
	if err := t.hot.Save(coords, configHash, v); err != nil {
		t.logger.Warn("Не удалось записать чанк (%d, %d) в быстрый кеш: %v", coords.X, coords.Y, err)
	}
	return nil
}

// Load читает из hot, при промахе из cold с дозаписью в hot
func (t *TieredCache) Load(coords vec.Vec2, configHash string, dst interface{}) (bool, error) {
	found, err := t.hot.Load(coords, configHash, dst)
	if err != nil {
		t.logger.Debug("Ошибка быстрого кеша для (%d, %d): %v", coords.X, coords.Y, err)
	} else if found {
		return true, nil
	}

	found, err = t.cold.Load(coords, configHash, dst)
	if err != nil || !found {
		return found, err
	}
	if err := t.hot.Save(coords, configHash, dst); err != nil {
		t.logger.Debug("Не удалось дозаписать чанк (%d, %d) в быстрый кеш: %v", coords.X, coords.Y, err)
	}
	return true, nil
}
