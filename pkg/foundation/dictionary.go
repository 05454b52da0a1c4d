package foundation

import (
	"fmt"

	"huta_go/pkg/memory"
)

// Dictionary maps keys to values, both retained while stored.
//
// Keys are matched by identity, not by IsEqual: two distinct Strings with the
// same text are two different keys.
type Dictionary struct {
	memory.Object
	entries map[memory.Ref]memory.Ref
}

// NewDictionary returns an empty dictionary owned by the caller.
func NewDictionary(opts ...memory.Option) *Dictionary {
	d := &Dictionary{entries: make(map[memory.Ref]memory.Ref)}
	d.Init(d, opts...)
	return d
}

// NewDictionaryWithDictionary returns a shallow copy of other.
func NewDictionaryWithDictionary(other *Dictionary, opts ...memory.Option) *Dictionary {
	d := NewDictionary(opts...)
	if other == nil {
		return d
	}
	for k, v := range other.entries {
		d.entries[k.Retain()] = v.Retain()
	}
	return d
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// AllKeys returns a caller-owned array of the keys in unspecified order.
func (d *Dictionary) AllKeys() *Array {
	keys := NewArrayWithCapacity(len(d.entries), d.ManagerOption())
	for k := range d.entries {
		keys.AddObject(k)
	}
	return keys
}

// AllObjects returns a caller-owned array of the values in unspecified order.
func (d *Dictionary) AllObjects() *Array {
	values := NewArrayWithCapacity(len(d.entries), d.ManagerOption())
	for _, v := range d.entries {
		values.AddObject(v)
	}
	return values
}

// ObjectForKey returns the value stored under key. A miss stores nothing.
func (d *Dictionary) ObjectForKey(key memory.Ref) (memory.Ref, bool) {
	if memory.IsNil(key) {
		return nil, false
	}
	v, ok := d.entries[key]
	return v, ok
}

// SetObject stores value under key, retaining both. A previous value under
// the same key is released after the new one is retained.
func (d *Dictionary) SetObject(value, key memory.Ref) error {
	if memory.IsNil(value) || memory.IsNil(key) {
		return fmt.Errorf("Dictionary.SetObject: %w", memory.ErrNilObject)
	}
	old, ok := d.entries[key]
	if ok {
		if memory.Same(old, value) {
			return nil
		}
		d.entries[key] = value.Retain()
		old.Release()
		return nil
	}
	d.entries[key.Retain()] = value.Retain()
	return nil
}

// RemoveObjectForKey drops the entry for key, releasing its key and value.
func (d *Dictionary) RemoveObjectForKey(key memory.Ref) bool {
	if memory.IsNil(key) {
		return false
	}
	v, ok := d.entries[key]
	if !ok {
		return false
	}
	delete(d.entries, key)
	v.Release()
	key.Release()
	return true
}

// RemoveObjectsForKeys removes the entry for every key in keys and returns
// how many entries were removed.
func (d *Dictionary) RemoveObjectsForKeys(keys *Array) int {
	if keys == nil {
		return 0
	}
	n := 0
	for _, k := range keys.Objects() {
		if d.RemoveObjectForKey(k) {
			n++
		}
	}
	return n
}

// RemoveAllObjects releases every key and value once.
func (d *Dictionary) RemoveAllObjects() {
	entries := d.entries
	d.entries = make(map[memory.Ref]memory.Ref)
	for k, v := range entries {
		v.Release()
		k.Release()
	}
}

// Clone returns a caller-owned shallow copy sharing keys and values.
func (d *Dictionary) Clone() (memory.Ref, error) {
	return NewDictionaryWithDictionary(d, d.ManagerOption()), nil
}

// Dealloc releases every key and value.
func (d *Dictionary) Dealloc() {
	d.RemoveAllObjects()
}

func (d *Dictionary) String() string {
	return fmt.Sprintf("Dictionary(len=%d)", len(d.entries))
}
