package domain

import (
	"fmt"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

const (
	// MaxSecretValueSize bounds a single secret value.
	MaxSecretValueSize = 64 * 1024

	// MaxUserDataSize bounds the optional user data attached to a version.
	MaxUserDataSize = 64 * 1024

	// MaxCommentLength bounds the optional comment attached to a version.
	MaxCommentLength = 1024
)

// SecretType declares how a secret value should be interpreted by consumers.
type SecretType byte

const (
	// SecretTypeOpaque is a text secret (passwords, tokens).
	SecretTypeOpaque SecretType = 1
	// SecretTypeBinary is an arbitrary byte sequence (keys, keystores).
	SecretTypeBinary SecretType = 2
)

func (t SecretType) String() string {
	switch t {
	case SecretTypeOpaque:
		return "opaque"
	case SecretTypeBinary:
		return "binary"
	default:
		return fmt.Sprintf("SecretType(%d)", byte(t))
	}
}

// Valid reports whether t is a known secret type.
func (t SecretType) Valid() bool {
	return t == SecretTypeOpaque || t == SecretTypeBinary
}

// SecretValue is the secret material of one version together with its declared type.
// It formats as a redacted placeholder so it never ends up in logs by accident.
type SecretValue struct {
	Type  SecretType
	value []byte
}

// NewOpaqueValue creates a text secret value. The string is copied.
func NewOpaqueValue(s string) SecretValue {
	return SecretValue{Type: SecretTypeOpaque, value: []byte(s)}
}

// NewBinaryValue creates a binary secret value. The slice is copied.
func NewBinaryValue(b []byte) SecretValue {
	return SecretValue{Type: SecretTypeBinary, value: append([]byte(nil), b...)}
}

// NewSecretValue creates a value of the given type, taking ownership of b.
func NewSecretValue(t SecretType, b []byte) SecretValue {
	return SecretValue{Type: t, value: b}
}

// Bytes returns the secret material. The slice is shared with the value; Zero wipes it.
func (v SecretValue) Bytes() []byte {
	return v.value
}

// Text returns the secret material as a string. The returned string cannot be zeroed,
// prefer Bytes in code that handles the value for longer than a call.
func (v SecretValue) Text() string {
	return string(v.value)
}

// Len returns the length of the secret material in bytes.
func (v SecretValue) Len() int {
	return len(v.value)
}

// Equal reports whether both values carry the same type and material.
func (v SecretValue) Equal(other SecretValue) bool {
	return v.Type == other.Type && string(v.value) == string(other.value)
}

// Zero wipes the secret material in place.
func (v SecretValue) Zero() {
	cryptoDomain.Zero(v.value)
}

func (v SecretValue) String() string {
	return "[REDACTED]"
}

// GoString keeps %#v from printing the material.
func (v SecretValue) GoString() string {
	return fmt.Sprintf("domain.SecretValue{Type:%s, value:[REDACTED]}", v.Type)
}

// UserData is optional opaque data stored encrypted next to the secret value.
type UserData []byte

// Comment is an optional free text note stored encrypted with a version.
type Comment string

// UserAlias names the principal that created or modified a version.
type UserAlias string
