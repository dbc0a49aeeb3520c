package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const resourceIDSeparator = ":"

// ResourceID uniquely identifies a local resource. The string form is "{kind}:{uuid}"
// e.g. "repo:6f1c2b...". ResourceIDs are immutable and never reused.
type ResourceID struct {
	Kind ResourceKind
	UUID uuid.UUID
}

func NewResourceID(kind ResourceKind) ResourceID {
	return ResourceID{Kind: kind, UUID: uuid.New()}
}

// ParseResourceID parses the string form of a ResourceID.
func ParseResourceID(str string) (ResourceID, error) {
	parts := strings.SplitN(str, resourceIDSeparator, 2)
	if len(parts) != 2 || parts[0] == "" {
		return ResourceID{}, errors.Errorf("error malformed resource id: %q", str)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return ResourceID{}, errors.Wrapf(err, "error malformed resource id: %q", str)
	}
	return ResourceID{Kind: ResourceKind(parts[0]), UUID: id}, nil
}

func (m ResourceID) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s%s%s", m.Kind, resourceIDSeparator, m.UUID)
}

func (m ResourceID) IsZero() bool {
	return m.Kind == "" && m.UUID == uuid.Nil
}

func (m ResourceID) Valid() bool {
	return m.Kind != "" && m.UUID != uuid.Nil
}

// Equal returns true if both ids refer to the same resource.
func (m ResourceID) Equal(other ResourceID) bool {
	return m.Kind == other.Kind && m.UUID == other.UUID
}

func (m *ResourceID) Scan(src interface{}) error {
	if src == nil {
		*m = ResourceID{}
		return nil
	}
	var str string
	switch t := src.(type) {
	case string:
		str = t
	case []byte:
		str = string(t)
	default:
		return errors.Errorf("error expected string but found: %T", src)
	}
	if str == "" {
		*m = ResourceID{}
		return nil
	}
	id, err := ParseResourceID(str)
	if err != nil {
		return err
	}
	*m = id
	return nil
}

// Value stores a zero id as NULL so optional references can be expressed on nullable columns.
func (m ResourceID) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}
	return m.String(), nil
}

func (m ResourceID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ResourceID) UnmarshalText(data []byte) error {
	return m.Scan(string(data))
}

func (m ResourceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *ResourceID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	return m.Scan(str)
}
