package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Deterministic(t *testing.T) {
	a := map[string]any{"name": "x", "ownerId": "u1", "tasks": []any{map[string]any{"text": "t", "completed": false}}}
	b := map[string]any{"tasks": []any{map[string]any{"completed": false, "text": "t"}}, "ownerId": "u1", "name": "x"}

	ba, err := Marshal(a)
	require.NoError(t, err)
	bb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb)
}

func TestUnmarshal_NestedMapsAreStringKeyed(t *testing.T) {
	in := map[string]any{"tasks": []any{map[string]any{"text": "buy milk"}}}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, Unmarshal(data, &out))

	tasks, ok := out["tasks"].([]any)
	require.True(t, ok)
	task, ok := tasks[0].(map[string]any)
	require.True(t, ok, "nested map should decode as map[string]any, got %T", tasks[0])
	assert.Equal(t, "buy milk", task["text"])
}

func TestUnmarshal_Garbage(t *testing.T) {
	var out map[string]any
	assert.Error(t, Unmarshal([]byte{0xff, 0x00}, &out))
}
