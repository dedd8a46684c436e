package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayNeverProducesTupleSchema(t *testing.T) {
	item := Object(map[string]*Schema{"id": String()}, "id")
	arr := Array(item, 1, 10)

	b, err := json.Marshal(arr)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	// "items" must be a single object, never a JSON array (tuple validation).
	_, isArray := decoded["items"].([]any)
	require.False(t, isArray, "items must not serialize as a tuple-validation array")
	_, isObject := decoded["items"].(map[string]any)
	require.True(t, isObject)
}

func TestHeterogeneousArrayUsesAnyOf(t *testing.T) {
	alt1 := Object(map[string]*Schema{"kind": String("a")}, "kind")
	alt2 := Object(map[string]*Schema{"kind": String("b")}, "kind")
	arr := HeterogeneousArray([]*Schema{alt1, alt2}, 0, 5)

	require.Equal(t, "array", arr.Type)
	require.NotNil(t, arr.Items)
	require.Len(t, arr.Items.AnyOf, 2)
	require.Equal(t, 5, *arr.MaxItems)
}

func TestObjectDisallowsAdditionalProperties(t *testing.T) {
	obj := Object(map[string]*Schema{"x": String()}, "x")
	require.NotNil(t, obj.AdditionalProperties)
	require.False(t, *obj.AdditionalProperties)
}
