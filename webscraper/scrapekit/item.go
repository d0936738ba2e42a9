package scrapekit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one key/value pair of an Item.
type Field struct {
	Key   string
	Value any
}

// Item is one collected record. Fields keep insertion order, which becomes
// the JSON key order and the CSV/Markdown column order.
type Item []Field

// Set replaces the value under key or appends it.
func (it Item) Set(key string, value any) Item {
	for i := range it {
		if it[i].Key == key {
			it[i].Value = value
			return it
		}
	}
	return append(it, Field{Key: key, Value: value})
}

// Get returns the value under key.
func (it Item) Get(key string) (any, bool) {
	for _, f := range it {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under key formatted with %v, or "".
func (it Item) String(key string) string {
	v, ok := it.Get(key)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Keys returns the field names in order.
func (it Item) Keys() []string {
	keys := make([]string, len(it))
	for i, f := range it {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON encodes the item as an object in field order.
func (it Item) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range it {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("scrapekit: field %q: %w", f.Key, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
