package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is an open JSON object stored in a jsonb column.
type Metadata []byte

func NewMetadata(values map[string]any) Metadata {
	if len(values) == 0 {
		return Metadata("{}")
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return Metadata("{}")
	}
	return Metadata(raw)
}

func (m Metadata) Map() map[string]any {
	out := map[string]any{}
	if len(m) == 0 {
		return out
	}
	_ = json.Unmarshal(m, &out)
	return out
}

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return string(m), nil
}

func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
	case []byte:
		*m = append((*m)[:0], v...)
	case string:
		*m = Metadata(v)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = nil
		return nil
	}
	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	*m = append((*m)[:0], data...)
	return nil
}
