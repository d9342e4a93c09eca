// Package jsonx wraps Sonic for JSON encoding and decoding with encoding/json semantics.
package jsonx

import (
	"io"

	"github.com/bytedance/sonic"
)

// api mirrors encoding/json behavior (sorted map keys, HTML escaping, validated strings).
var api = sonic.ConfigStd

// Marshal returns the JSON encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal parses JSON-encoded data into v.
func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

// Decode reads one JSON value from r into v.
func Decode(r io.Reader, v interface{}) error {
	return api.NewDecoder(r).Decode(v)
}

// Encode writes v to w as JSON followed by a newline. A non-empty indent pretty-prints.
func Encode(w io.Writer, v interface{}, indent string) error {
	enc := api.NewEncoder(w)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(v)
}
