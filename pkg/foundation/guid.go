package foundation

import (
	"fmt"

	"github.com/gofrs/uuid/v5"

	"huta_go/pkg/memory"
)

// GUID is a managed RFC 4122 identifier with value equality.
type GUID struct {
	memory.Object
	id uuid.UUID
}

func newGUID(id uuid.UUID, opts []memory.Option) *GUID {
	g := &GUID{id: id}
	g.Init(g, opts...)
	return g
}

// NewGUID returns a caller-owned random (version 4) GUID.
func NewGUID(opts ...memory.Option) (*GUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate guid: %w", err)
	}
	return newGUID(id, opts), nil
}

// ParseGUID parses the canonical textual form.
func ParseGUID(s string, opts ...memory.Option) (*GUID, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse guid: %w", err)
	}
	return newGUID(id, opts), nil
}

// NewGUIDFromBytes builds a GUID from its 16-byte form.
func NewGUIDFromBytes(b []byte, opts ...memory.Option) (*GUID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("guid from bytes: %w", err)
	}
	return newGUID(id, opts), nil
}

// UUID returns the underlying identifier.
func (g *GUID) UUID() uuid.UUID {
	return g.id
}

// Bytes returns the 16-byte form.
func (g *GUID) Bytes() []byte {
	return g.id.Bytes()
}

// IsEqual reports whether other is a GUID with the same value.
func (g *GUID) IsEqual(other memory.Ref) bool {
	o, ok := other.(*GUID)
	return ok && o != nil && o.id == g.id
}

// Clone returns a caller-owned copy.
func (g *GUID) Clone() (memory.Ref, error) {
	return newGUID(g.id, []memory.Option{g.ManagerOption()}), nil
}

func (g *GUID) String() string {
	return g.id.String()
}
