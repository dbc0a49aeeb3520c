package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	timestampStorageFormat = "2006-01-02 15:04:05.999999-07:00"
	// Rows written by hand, e.g. seeded by migrations, may carry no offset and are read as UTC
	timestampNoZoneFormat = "2006-01-02 15:04:05.999999"
)

// Time is a UTC timestamp rounded to the microsecond, the precision postgres stores.
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Round(time.Microsecond)}
}

func NewTimePtr(t time.Time) *Time {
	newTime := NewTime(t)
	return &newTime
}

// Scan accepts time.Time (postgres) or the storage string format (sqlite), with or without an offset.
func (s *Time) Scan(src interface{}) error {
	switch t := src.(type) {
	case nil:
		return nil
	case time.Time:
		*s = NewTime(t)
	case string:
		parsed, err := time.Parse(timestampStorageFormat, t)
		if err != nil {
			var noZoneErr error
			parsed, noZoneErr = time.Parse(timestampNoZoneFormat, t)
			if noZoneErr != nil {
				return errors.Wrap(err, "error parsing time")
			}
		}
		*s = Time{Time: parsed.UTC()}
	case []byte:
		return s.Scan(string(t))
	default:
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	return nil
}

func (s Time) Value() (driver.Value, error) {
	return s.Format(timestampStorageFormat), nil
}
