package models

import (
	"database/sql/driver"
	"fmt"
)

// ResourceKind names a type of local resource and forms the prefix of every ResourceID.
type ResourceKind string

func (s ResourceKind) String() string {
	return string(s)
}

func (s *ResourceKind) Scan(src interface{}) error {
	switch t := src.(type) {
	case nil:
		*s = ""
	case string:
		*s = ResourceKind(t)
	default:
		return fmt.Errorf("error expected string: %#v", src)
	}
	return nil
}

func (s ResourceKind) Value() (driver.Value, error) {
	return string(s), nil
}
