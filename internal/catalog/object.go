package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// object remembers the key order of a decoded JSON object and the raw values
// of keys the Go type does not model, so a rewrite does not drop or reorder
// data other tools put in the file.
type object struct {
	order []string
	extra map[string]json.RawMessage

	// raw values of modelled keys and the text each was decoded to; a field
	// still holding that text is written back byte for byte.
	orig    map[string]json.RawMessage
	decoded map[string]string
	lists   map[string][]string
}

type field struct {
	key   string
	value any
	omit  bool
	// keep writes the decoded raw value instead of value.
	keep bool
}

func decodeObject(data []byte, knownKeys ...string) (object, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return object{}, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return object{}, nil, errors.New("expected JSON object")
	}

	isKnown := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		isKnown[k] = true
	}

	obj := object{extra: make(map[string]json.RawMessage)}
	known := make(map[string]json.RawMessage, len(knownKeys))
	seen := make(map[string]bool)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return object{}, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return object{}, nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return object{}, nil, fmt.Errorf("value of %q: %w", key, err)
		}

		if !seen[key] {
			obj.order = append(obj.order, key)
			seen[key] = true
		}
		if isKnown[key] {
			known[key] = raw
			if obj.orig == nil {
				obj.orig = make(map[string]json.RawMessage)
			}
			obj.orig[key] = raw
		} else {
			obj.extra[key] = raw
		}
	}

	if _, err := dec.Token(); err != nil {
		return object{}, nil, err
	}
	return obj, known, nil
}

// text decodes a modelled scalar into dst. Strings are taken as-is, numbers
// and booleans as their literal text; anything else leaves dst empty and the
// raw value is kept for the rewrite.
func (o *object) text(key string, dst *string) {
	raw, ok := o.orig[key]
	if !ok {
		return
	}
	var s string
	trimmed := bytes.TrimSpace(raw)
	switch {
	case json.Unmarshal(trimmed, &s) == nil:
	case len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')),
		bytes.Equal(trimmed, []byte("true")), bytes.Equal(trimmed, []byte("false")):
		s = string(trimmed)
	}
	*dst = s
	if o.decoded == nil {
		o.decoded = make(map[string]string)
	}
	o.decoded[key] = s
}

// list decodes a string array into dst, accepting a single string as a
// one-element list. Any other shape leaves dst nil and keeps the raw value.
func (o *object) list(key string, dst *[]string) {
	raw, ok := o.orig[key]
	if !ok {
		return
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && !isNull(raw) {
		*dst = []string{single}
	} else if err := json.Unmarshal(raw, dst); err != nil {
		*dst = nil
	}
	if o.lists == nil {
		o.lists = make(map[string][]string)
	}
	o.lists[key] = *dst
}

func (o object) unchangedList(key string, l []string) bool {
	d, ok := o.lists[key]
	return ok && slices.Equal(d, l)
}

// unchanged reports whether key was decoded by text and s still equals it.
func (o object) unchanged(key, s string) bool {
	d, ok := o.decoded[key]
	return ok && d == s
}

// encode writes keys in their decoded order first, then any modelled fields
// the original object lacked, in declaration order.
func (o object) encode(fields []field) ([]byte, error) {
	byKey := make(map[string]field, len(fields))
	for _, f := range fields {
		byKey[f.key] = f
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	written := make(map[string]bool, len(o.order)+len(fields))

	first := true
	write := func(key string, raw []byte) error {
		k, err := marshal(key)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}

	emit := func(f field) error {
		written[f.key] = true
		if raw, ok := o.orig[f.key]; ok && f.keep {
			return write(f.key, raw)
		}
		if f.omit {
			return nil
		}
		raw, err := marshal(f.value)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.key, err)
		}
		return write(f.key, raw)
	}

	for _, key := range o.order {
		if written[key] {
			continue
		}
		if f, ok := byKey[key]; ok {
			if err := emit(f); err != nil {
				return nil, err
			}
			continue
		}
		if raw, ok := o.extra[key]; ok {
			written[key] = true
			if err := write(key, raw); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range fields {
		if written[f.key] {
			continue
		}
		if err := emit(f); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshal encodes without HTML escaping so "&" and "<" in names survive as-is.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
