package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref points at a vendor, vehicle, material or plant.
// The collaborator sends either a bare id ("64f1...") or an expanded object
// ({"_id": "64f1...", "name": "..."}). Both shapes are resolved here, once,
// so the rest of the code only deals with Ref.
type Ref struct {
	ID     string
	Fields map[string]string // display fields, only set for expanded refs
}

// Reference builds a bare-id ref.
func Reference(id string) Ref {
	return Ref{ID: id}
}

// Expanded builds a ref that carries display fields.
func Expanded(id string, fields map[string]string) Ref {
	if fields == nil {
		fields = map[string]string{}
	}
	return Ref{ID: id, Fields: fields}
}

// IsZero reports whether the ref has no id.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// Expanded reports whether display fields came with the ref.
func (r Ref) Expanded() bool {
	return r.Fields != nil
}

// labelKeys are tried in order when picking a human label.
var labelKeys = []string{"name", "vehicleNumber", "code", "email"}

// Label returns the best display string for the ref, falling back to the id.
func (r Ref) Label() string {
	for _, k := range labelKeys {
		if v := r.Fields[k]; v != "" {
			return v
		}
	}
	return r.ID
}

// MarshalJSON always writes the bare id; payloads never send expanded objects.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts a string id, an object with _id/id, or null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Reference(id)
		return nil
	}

	if data[0] != '{' {
		return fmt.Errorf("ref: unexpected JSON %s", string(data))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ref: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, val := range raw {
		switch v := val.(type) {
		case string:
			fields[k] = v
		case float64, bool:
			fields[k] = fmt.Sprint(v)
		}
	}

	id := fields["_id"]
	if id == "" {
		id = fields["id"]
	}
	delete(fields, "_id")
	delete(fields, "id")
	if id == "" {
		return fmt.Errorf("ref: object without _id or id")
	}

	*r = Expanded(id, fields)
	return nil
}
