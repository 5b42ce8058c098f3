package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCodecEncodesPlainArray(t *testing.T) {
	c := DefaultCodec()
	data, err := c.Marshal([]int{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, "[3,1,2]", string(data))

	var ids []int
	require.NoError(t, c.Unmarshal(data, &ids))
	assert.Equal(t, []int{3, 1, 2}, ids)
}

func TestStrictCodecRejectsTrailingData(t *testing.T) {
	var ids []int
	err := DefaultCodec().Unmarshal([]byte("[1,2] [3]"), &ids)
	assert.Error(t, err)

	err = NewJSONCodec(false).Unmarshal([]byte(`{"a":1}`), &ids)
	assert.Error(t, err)
}

func TestGetCodec(t *testing.T) {
	c, err := GetCodec("json-pretty")
	require.NoError(t, err)
	data, err := c.Marshal([]int{1})
	require.NoError(t, err)
	assert.Equal(t, "[\n  1\n]", string(data))

	_, err = GetCodec("gob")
	assert.Error(t, err)
}
