package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
)

// indent is the fixed indentation of every serialized document.
const indent = "    "

// Document is the decoded JSON object. Tracked values are strings; anything
// else present in the file is carried through untouched.
type Document map[string]any

// Get returns the string stored at key. ok is false when the key is absent or
// holds a non-string value.
func (d Document) Get(key string) (value string, ok bool) {
	value, ok = d[key].(string)
	return value, ok
}

// Set stores value at key.
func (d Document) Set(key, value string) {
	d[key] = value
}

// Decode parses data as a single JSON object.
func Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", syncerr.ErrFormat, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", syncerr.ErrFormat)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %T", syncerr.ErrFormat, raw)
	}
	return Document(obj), nil
}

// Encode serializes doc with sorted keys and fixed indentation, so equal
// documents always produce identical bytes.
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return buf.Bytes(), nil
}
