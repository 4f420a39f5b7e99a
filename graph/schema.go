package graph

import "reflect"

// Schema defines the initial state and how node updates are merged into it.
type Schema[S any] interface {
	// Init returns the state a run starts from.
	Init() S

	// Update merges a node update into the current state.
	Update(current, update S) (S, error)
}

// StructSchema is a Schema for struct states driven by a merge function.
type StructSchema[S any] struct {
	InitialValue S
	MergeFunc    func(current, update S) (S, error)
}

// NewStructSchema creates a StructSchema. A nil merge uses DefaultStructMerge.
func NewStructSchema[S any](initial S, merge func(current, update S) (S, error)) *StructSchema[S] {
	if merge == nil {
		merge = DefaultStructMerge[S]
	}
	return &StructSchema[S]{
		InitialValue: initial,
		MergeFunc:    merge,
	}
}

// Init returns the initial value.
func (s *StructSchema[S]) Init() S {
	return s.InitialValue
}

// Update merges update into current. Without a merge function the update wins.
func (s *StructSchema[S]) Update(current, update S) (S, error) {
	if s.MergeFunc == nil {
		return update, nil
	}
	return s.MergeFunc(current, update)
}

// DefaultStructMerge copies every non-zero exported field of update onto current.
// Non-struct states are replaced by update.
func DefaultStructMerge[S any](current, update S) (S, error) {
	cv := reflect.ValueOf(&current).Elem()
	uv := reflect.ValueOf(update)
	if cv.Kind() != reflect.Struct {
		return update, nil
	}

	for i := 0; i < uv.NumField(); i++ {
		if !cv.Type().Field(i).IsExported() {
			continue
		}
		field := uv.Field(i)
		if !field.IsZero() {
			cv.Field(i).Set(field)
		}
	}
	return current, nil
}
