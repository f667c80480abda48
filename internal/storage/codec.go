package storage

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/voxel-export/internal/vec"
	"github.com/klauspost/compress/zstd"
)

// PayloadCodec сериализует значения в JSON и сжимает их zstd.
// EncodeAll и DecodeAll безопасны для конкурентного использования.
type PayloadCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewPayloadCodec создаёт кодек со стандартным уровнем сжатия
func NewPayloadCodec() (*PayloadCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd энкодер: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("не удалось создать zstd декодер: %w", err)
	}
	return &PayloadCodec{encoder: encoder, decoder: decoder}, nil
}

// Encode сериализует и сжимает v
func (c *PayloadCodec) Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации меша: %w", err)
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// Decode распаковывает data и десериализует результат в dst
func (c *PayloadCodec) Decode(data []byte, dst interface{}) error {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("ошибка распаковки меша: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("ошибка десериализации меша: %w", err)
	}
	return nil
}

// Close освобождает ресурсы энкодера и декодера
func (c *PayloadCodec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

// MeshKey возвращает ключ меша чанка: mesh:<x>:<z>:<configHash>
func MeshKey(coords vec.Vec2, configHash string) string {
	return fmt.Sprintf("%s%d:%d:%s", meshKeyPrefix, coords.X, coords.Y, configHash)
}
