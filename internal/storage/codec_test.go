package storage

import (
	"testing"

	"github.com/annel0/voxel-export/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshKey(t *testing.T) {
	assert.Equal(t, "mesh:-3:7:abc", MeshKey(vec.Vec2{X: -3, Y: 7}, "abc"))
}

func TestPayloadCodec_Compresses(t *testing.T) {
	codec, err := NewPayloadCodec()
	require.NoError(t, err)
	defer codec.Close()

	in := testPayload{Visible: 1}
	for i := 0; i < 500; i++ {
		in.Faces = append(in.Faces, "grass_block_side")
	}
	data, err := codec.Encode(in)
	require.NoError(t, err)
	assert.Less(t, len(data), 500*len(`"grass_block_side",`)/4, "повторяющиеся данные должны сжиматься")

	var out testPayload
	require.NoError(t, codec.Decode(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, codec.Decode([]byte("не zstd"), &out))
}
