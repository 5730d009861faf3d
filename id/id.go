// Package id defines the identifier type used for jobs and related
// engine records.
//
// Every identifier is a random 128-bit UUID (RFC 4122 version 4) rendered
// as its canonical dashed string form, e.g.
// "f47ac10b-58cc-4372-a567-0e02b2c3d479". Identifiers are generated
// in-process and are not type-prefixed: the Job Engine only ever
// identifies one kind of entity (a job), so there is no need for the
// prefix-disambiguation scheme larger multi-entity systems use.
package id

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// JobID is a globally unique job identifier.
type JobID struct {
	inner uuid.UUID
	valid bool
}

// Nil is the zero-value JobID.
var Nil JobID

// New generates a fresh random JobID.
func New() JobID {
	return JobID{inner: uuid.New(), valid: true}
}

// Parse parses a canonical UUID string into a JobID.
func Parse(s string) (JobID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return JobID{inner: u, valid: true}, nil
}

// MustParse is like Parse but panics on error. Use only for hardcoded values.
func MustParse(s string) JobID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// String returns the canonical dashed UUID representation.
// Returns an empty string for the Nil JobID.
func (i JobID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// IsNil reports whether this JobID is the zero value.
func (i JobID) IsNil() bool {
	return !i.valid
}

// Equal reports whether two JobIDs refer to the same identifier.
func (i JobID) Equal(other JobID) bool {
	return i.valid == other.valid && i.inner == other.inner
}

// MarshalText implements encoding.TextMarshaler.
func (i JobID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *JobID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed
	return nil
}

// Value implements driver.Valuer so a JobID can be stored by a SQL archive backend.
func (i JobID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner so a JobID can be read back from a SQL archive backend.
func (i *JobID) Scan(src any) error {
	if src == nil {
		*i = Nil
		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil
			return nil
		}
		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil
			return nil
		}
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into JobID", src)
	}
}
