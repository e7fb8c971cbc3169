package types

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ExtraMap holds unknown fields captured during parsing so they survive a
// round trip. Keys are emitted in sorted order, which keeps output bytes
// deterministic regardless of input order.
type ExtraMap map[string]json.RawMessage

// Clone returns a deep copy of the map. A nil map clones to nil.
func (m ExtraMap) Clone() ExtraMap {
	if m == nil {
		return nil
	}
	out := make(ExtraMap, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// SortedKeys returns the map's keys in ascending order.
func (m ExtraMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the string value stored under key, or "" and false when
// the key is absent or not a JSON string.
func (m ExtraMap) GetString(key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// objectWriter builds a JSON object with explicit field order. All known
// fields are written first, then ExtraMap entries in sorted key order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) raw(name string, raw json.RawMessage) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.n++
	key, _ := json.Marshal(name)
	w.buf.Write(key)
	w.buf.WriteByte(':')
	w.buf.Write(raw)
}

// field marshals v and writes it under name. Marshal failures are impossible
// for the model's field types, so the error path writes null.
func (w *objectWriter) field(name string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte("null")
	}
	w.raw(name, raw)
}

// extras appends the extension fields in sorted key order.
func (w *objectWriter) extras(m ExtraMap) {
	for _, k := range m.SortedKeys() {
		w.raw(k, m[k])
	}
}

func (w *objectWriter) finish() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

// decodeObject unmarshals data into a key → raw value map, rejecting
// non-object input. Raw values are compacted so that a value reads the same
// whether it came from hand-formatted input or from emitted output.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for k, v := range obj {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, err
		}
		obj[k] = buf.Bytes()
	}
	return obj, nil
}

// isJSONNull reports whether raw is the JSON literal null.
func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
