package coerce

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// objectIDType is the distinguished identifier type. Identifiers are UUIDs.
type objectIDType struct{}

func (objectIDType) Name() string { return "object_id" }

func (objectIDType) ToTyped(v any) any { return ToObjectID(v) }

func (objectIDType) ToDocument(v any) any { return ToObjectID(v) }

// Generate returns a fresh identifier
func (objectIDType) Generate() any { return uuid.New() }

// ToObjectID converts strings, raw identifiers and byte arrays to the
// canonical identifier form. Blank or unparsable input yields nil.
func ToObjectID(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return val
	case *uuid.UUID:
		if val == nil {
			return nil
		}
		return *val
	case [16]byte:
		return uuid.UUID(val)
	case []byte:
		if len(val) == 16 {
			id, err := uuid.FromBytes(val)
			if err != nil {
				return nil
			}
			return id
		}
		return parseObjectID(string(val))
	case string:
		return parseObjectID(val)
	case fmt.Stringer:
		return parseObjectID(val.String())
	default:
		return nil
	}
}

func parseObjectID(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return id
}
