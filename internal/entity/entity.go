package entity

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Entity is a primary-keyed record with a lazily-parsed field map. Reading a
// single field does not require materializing every field; mutating any
// field invalidates the cached serialized form, which is rebuilt on the
// next call to Serialize. Fields live as a raw blob until first touched,
// and writes mark the blob dirty rather than re-encoding eagerly.
type Entity struct {
	mu     sync.Mutex
	pk     string
	raw    []byte          // serialized form, valid iff !dirty
	fields map[string]Value // parsed form, valid iff parsed
	parsed bool
	dirty  bool
}

// New creates an empty entity for the given primary key.
func New(pk string) *Entity {
	return &Entity{pk: pk, fields: map[string]Value{}, parsed: true, dirty: true}
}

// FromBytes wraps a serialized blob without eagerly parsing it.
func FromBytes(pk string, raw []byte) *Entity {
	return &Entity{pk: pk, raw: raw}
}

// PK returns the entity's primary key.
func (e *Entity) PK() string { return e.pk }

func (e *Entity) ensureParsed() error {
	if e.parsed {
		return nil
	}
	fields := map[string]Value{}
	if len(e.raw) > 0 {
		if err := json.Unmarshal(e.raw, &fields); err != nil {
			return fmt.Errorf("entity: corrupt field blob for pk %q: %w", e.pk, err)
		}
	}
	e.fields = fields
	e.parsed = true
	return nil
}

// Get returns a single field's value without parsing the whole record more
// than once per Entity lifetime.
func (e *Entity) Get(field string) (Value, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureParsed(); err != nil {
		return Value{}, false, err
	}
	v, ok := e.fields[field]
	return v, ok, nil
}

// Set assigns a field and invalidates the cached serialized blob.
func (e *Entity) Set(field string, v Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureParsed(); err != nil {
		return err
	}
	e.fields[field] = v
	e.dirty = true
	return nil
}

// Delete removes a field.
func (e *Entity) Delete(field string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureParsed(); err != nil {
		return err
	}
	delete(e.fields, field)
	e.dirty = true
	return nil
}

// Fields returns a snapshot copy of every field, parsing lazily if needed.
func (e *Entity) Fields() (map[string]Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureParsed(); err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out, nil
}

// Serialize returns the binary (JSON) form of the entity, rebuilding it only
// if a field has been mutated since the last Serialize call.
func (e *Entity) Serialize() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirty && e.raw != nil {
		return e.raw, nil
	}
	if err := e.ensureParsed(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(e.fields)
	if err != nil {
		return nil, fmt.Errorf("entity: serialize pk %q: %w", e.pk, err)
	}
	e.raw = raw
	e.dirty = false
	return raw, nil
}

// Clone returns a deep copy detached from this entity's internal cache.
func (e *Entity) Clone() (*Entity, error) {
	fields, err := e.Fields()
	if err != nil {
		return nil, err
	}
	c := New(e.pk)
	c.fields = fields
	return c, nil
}
