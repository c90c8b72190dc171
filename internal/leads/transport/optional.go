package transport

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// OptionalUUID distinguishes an omitted field from an explicit null. A value
// that is not a UUID decodes without error and sets Invalid with the text kept
// in Raw; callers that honor the field reject it, callers that ignore it can.
type OptionalUUID struct {
	Value   *uuid.UUID
	Set     bool
	Invalid bool
	Raw     string
}

func (o OptionalUUID) IsZero() bool {
	return !o.Set
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	*o = OptionalUUID{Set: true}
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		o.Invalid = true
		o.Raw = string(trimmed)
		return nil
	}
	if raw == "" {
		return nil
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		o.Invalid = true
		o.Raw = raw
		return nil
	}
	o.Value = &parsed
	return nil
}

// OptionalString distinguishes an omitted field from null or "".
// Null decodes to Set with a nil Value.
type OptionalString struct {
	Value *string
	Set   bool
}

func (o OptionalString) IsZero() bool {
	return !o.Set
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Value = &raw
	return nil
}

// OptionalNumber accepts a JSON number, a numeric string or null and keeps
// the raw text so the service decides how to coerce it.
type OptionalNumber struct {
	Raw *string
	Set bool
}

func (o OptionalNumber) IsZero() bool {
	return !o.Set
}

func (o *OptionalNumber) UnmarshalJSON(data []byte) error {
	o.Set = true
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		o.Raw = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		o.Raw = &raw
		return nil
	}

	raw := string(trimmed)
	o.Raw = &raw
	return nil
}
