// Package wire maps engine types to and from google.protobuf.Struct, the
// message type shared by the gRPC service and the protobuf HTTP encoding.
package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct renders v through its JSON form, so field names match the JSON
// API exactly.
func ToStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire encode: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("wire encode: %w", err)
	}
	return s, nil
}

// FromStruct decodes s into v. A nil s leaves v untouched.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("wire decode: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("wire decode: %w", err)
	}
	return nil
}

// ListToStruct wraps a slice under key, since a Struct cannot be a list.
func ListToStruct[T any](key string, items []T) (*structpb.Struct, error) {
	if items == nil {
		items = []T{}
	}
	return ToStruct(map[string]any{key: items})
}

// ListFromStruct is the inverse of ListToStruct.
func ListFromStruct[T any](s *structpb.Struct, key string) ([]T, error) {
	var env map[string][]T
	if err := FromStruct(s, &env); err != nil {
		return nil, err
	}
	return env[key], nil
}
