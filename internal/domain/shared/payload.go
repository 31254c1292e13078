package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaV1 is the only payload schema this build understands.
const SchemaV1 = 1

// PayloadKind tags how a stored payload was interpreted on read.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadKnownSchemaV1
	PayloadRawUnknown
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadKnownSchemaV1:
		return "KnownSchemaV1"
	case PayloadRawUnknown:
		return "RawUnknown"
	default:
		return "Empty"
	}
}

// Payload is an optional structured attachment (inspection form data,
// financing metadata) stored with an explicit schema version. Records written
// by another schema stay readable as RawUnknown and round-trip unchanged.
type Payload[T any] struct {
	kind    PayloadKind
	version int
	known   *T
	raw     json.RawMessage
}

type payloadEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// NewPayloadV1 wraps a schema version 1 value
func NewPayloadV1[T any](v T) Payload[T] {
	return Payload[T]{kind: PayloadKnownSchemaV1, version: SchemaV1, known: &v}
}

// Kind returns how the payload was interpreted
func (p Payload[T]) Kind() PayloadKind {
	return p.kind
}

// SchemaVersion returns the stored schema version, 0 when empty
func (p Payload[T]) SchemaVersion() int {
	return p.version
}

// V1 returns the decoded value when the payload is KnownSchemaV1
func (p Payload[T]) V1() (T, bool) {
	if p.kind != PayloadKnownSchemaV1 || p.known == nil {
		var zero T
		return zero, false
	}
	return *p.known, true
}

// Raw returns the undecoded body of a RawUnknown payload
func (p Payload[T]) Raw() json.RawMessage {
	return p.raw
}

// IsEmpty reports whether no payload is attached
func (p Payload[T]) IsEmpty() bool {
	return p.kind == PayloadEmpty
}

// MarshalJSON writes the versioned envelope; an empty payload encodes as null.
func (p Payload[T]) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PayloadKnownSchemaV1:
		data, err := json.Marshal(p.known)
		if err != nil {
			return nil, err
		}
		return json.Marshal(payloadEnvelope{SchemaVersion: SchemaV1, Data: data})
	case PayloadRawUnknown:
		if p.version == 0 {
			return p.raw, nil
		}
		return json.Marshal(payloadEnvelope{SchemaVersion: p.version, Data: p.raw})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any envelope. Unknown versions, bodies that do not fit
// T, and bare JSON without an envelope all decode as RawUnknown.
func (p *Payload[T]) UnmarshalJSON(b []byte) error {
	*p = Payload[T]{}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var env payloadEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.SchemaVersion == 0 {
		if !json.Valid(trimmed) {
			return fmt.Errorf("payload is not valid JSON")
		}
		p.kind = PayloadRawUnknown
		p.raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}

	p.version = env.SchemaVersion
	if env.SchemaVersion == SchemaV1 {
		var v T
		dec := json.NewDecoder(bytes.NewReader(env.Data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&v); err == nil {
			p.kind = PayloadKnownSchemaV1
			p.known = &v
			return nil
		}
	}
	p.kind = PayloadRawUnknown
	p.raw = append(json.RawMessage(nil), env.Data...)
	return nil
}
