package util

import (
	"bytes"
	"encoding/json"
)

// Decode unmarshals JSON data, ignoring unknown fields. Used for documents
// where forward compatibility matters more than strictness, like imported
// backups from a newer release.
func Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// DecodeStrict unmarshals JSON data and fails on unknown fields. Schema
// checked documents go through this path so that misspelled or unsupported
// properties are reported instead of silently dropped.
func DecodeStrict(data []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
