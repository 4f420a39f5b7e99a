package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type SchemaTestState struct {
	Count   int
	Name    string
	Numbers []int
	hidden  string
}

func TestNewStructSchema(t *testing.T) {
	schema := NewStructSchema(SchemaTestState{Count: 10, Name: "test"}, nil)
	assert.NotNil(t, schema.MergeFunc)
	assert.Equal(t, SchemaTestState{Count: 10, Name: "test"}, schema.Init())
}

func TestStructSchema_Update(t *testing.T) {
	t.Run("custom merge function", func(t *testing.T) {
		schema := NewStructSchema(SchemaTestState{}, func(current, update SchemaTestState) (SchemaTestState, error) {
			current.Count += update.Count
			return current, nil
		})

		result, err := schema.Update(SchemaTestState{Count: 5}, SchemaTestState{Count: 3})
		assert.NoError(t, err)
		assert.Equal(t, 8, result.Count)
	})

	t.Run("nil merge function returns update", func(t *testing.T) {
		schema := &StructSchema[SchemaTestState]{}

		result, err := schema.Update(SchemaTestState{Count: 5, Name: "old"}, SchemaTestState{Name: "new"})
		assert.NoError(t, err)
		assert.Equal(t, SchemaTestState{Name: "new"}, result)
	})

	t.Run("merge error is returned", func(t *testing.T) {
		schema := NewStructSchema(SchemaTestState{}, func(current, update SchemaTestState) (SchemaTestState, error) {
			return current, errors.New("conflict")
		})

		_, err := schema.Update(SchemaTestState{}, SchemaTestState{})
		assert.EqualError(t, err, "conflict")
	})
}

func TestDefaultStructMerge(t *testing.T) {
	t.Run("non-zero fields overwrite", func(t *testing.T) {
		result, err := DefaultStructMerge(
			SchemaTestState{Count: 5, Name: "old", Numbers: []int{1, 2}},
			SchemaTestState{Count: 10, Numbers: []int{3}},
		)
		assert.NoError(t, err)
		assert.Equal(t, 10, result.Count)
		assert.Equal(t, "old", result.Name)
		assert.Equal(t, []int{3}, result.Numbers)
	})

	t.Run("unexported fields are kept", func(t *testing.T) {
		result, err := DefaultStructMerge(SchemaTestState{hidden: "a"}, SchemaTestState{hidden: "b"})
		assert.NoError(t, err)
		assert.Equal(t, "a", result.hidden)
	})

	t.Run("non-struct type returns update", func(t *testing.T) {
		result, err := DefaultStructMerge(5, 10)
		assert.NoError(t, err)
		assert.Equal(t, 10, result)
	})
}
