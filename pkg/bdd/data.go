package bdd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrKeyNotFound is returned when reading a key no step has written.
	ErrKeyNotFound = errors.New("key not found in scenario data")

	// ErrKeyType is returned by Key.Get when the stored value has another type.
	ErrKeyType = errors.New("scenario data value has unexpected type")
)

// Data is the scenario-scoped key/value store. Writes always overwrite.
type Data struct {
	mu     sync.RWMutex
	values map[string]any
}

func newData() *Data {
	return &Data{values: make(map[string]any)}
}

// Set stores value under key, replacing any previous value.
func (d *Data) Set(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = value
}

// Lookup returns the value and whether the key was set.
func (d *Data) Lookup(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[key]
	return v, ok
}

// Get returns the value or an error wrapping ErrKeyNotFound.
func (d *Data) Get(key string) (any, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// MustGet returns the value or fails the step.
func (d *Data) MustGet(key string) any {
	v, err := d.Get(key)
	if err != nil {
		fail(err.Error())
	}
	return v
}

// Has reports whether key was set.
func (d *Data) Has(key string) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Keys returns the stored keys in sorted order.
func (d *Data) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key is a typed handle on a Data entry. Typed and untyped access share the
// same namespace, so Key[T]{"UserId"} and Data.Get("UserId") see the same value.
type Key[T any] struct {
	name string
}

// NewKey declares a typed key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the underlying string key.
func (k Key[T]) Name() string {
	return k.name
}

// Set stores v.
func (k Key[T]) Set(d *Data, v T) {
	d.Set(k.name, v)
}

// Get returns the stored value. Missing keys wrap ErrKeyNotFound; values of
// another type wrap ErrKeyType.
func (k Key[T]) Get(d *Data) (T, error) {
	var zero T
	raw, err := d.Get(k.name)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q holds %T, want %T", ErrKeyType, k.name, raw, zero)
	}
	return v, nil
}

// MustGet returns the stored value or fails the step.
func (k Key[T]) MustGet(d *Data) T {
	v, err := k.Get(d)
	if err != nil {
		fail(err.Error())
	}
	return v
}
