package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ErrInvalidRole is returned when a value outside the role enumeration is parsed.
var ErrInvalidRole = errors.New("invalid role: must be customer, owner or admin")

// Role is the closed set of user roles. Only the package-level values below
// exist; the zero value is not a valid role.
type Role struct {
	name string
}

var (
	RoleCustomer = Role{"customer"}
	RoleOwner    = Role{"owner"}
	RoleAdmin    = Role{"admin"}
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleCustomer, RoleOwner, RoleAdmin}
}

// ParseRole maps a role name (case-insensitive) to its Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case RoleCustomer.name:
		return RoleCustomer, nil
	case RoleOwner.name:
		return RoleOwner, nil
	case RoleAdmin.name:
		return RoleAdmin, nil
	}
	return Role{}, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) String() string { return r.name }

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool { return r.name != "" }

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.name), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role name as a string column.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return r.name, nil
}

func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("%w: unsupported column type %T", ErrInvalidRole, src)
}

func (Role) GormDataType() string { return "string" }

func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !r.Valid() {
		return 0, nil, ErrInvalidRole
	}
	return bson.MarshalValue(r.name)
}

func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("%w: bson type %s", ErrInvalidRole, t)
	}
	return r.UnmarshalText([]byte(s))
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Name         string    `json:"name" gorm:"not null" bson:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null" bson:"email"`
	PasswordHash string    `json:"-" gorm:"not null" bson:"password_hash"`
	Role         Role      `json:"role" gorm:"type:varchar(16);not null" bson:"role"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      string    `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
