package domain

import (
	"fmt"
	"time"

	validation "github.com/jellydator/validation"
)

type patchOp uint8

const (
	patchKeep patchOp = iota
	patchSet
	patchClear
)

// Patch is a tri-state field of an update: the zero value keeps the current value,
// Set replaces it and Clear removes it.
type Patch[T any] struct {
	op    patchOp
	value T
}

// Set returns a patch replacing the current value with v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{op: patchSet, value: v}
}

// Clear returns a patch removing the current value.
func Clear[T any]() Patch[T] {
	return Patch[T]{op: patchClear}
}

// IsKeep reports whether the patch leaves the value unchanged.
func (p Patch[T]) IsKeep() bool { return p.op == patchKeep }

// IsSet reports whether the patch replaces the value.
func (p Patch[T]) IsSet() bool { return p.op == patchSet }

// IsClear reports whether the patch removes the value.
func (p Patch[T]) IsClear() bool { return p.op == patchClear }

// Value returns the replacement value of a Set patch.
func (p Patch[T]) Value() (T, bool) {
	return p.value, p.op == patchSet
}

// Apply returns the patched value given the current one.
func (p Patch[T]) Apply(current *T) *T {
	switch p.op {
	case patchSet:
		v := p.value
		return &v
	case patchClear:
		return nil
	default:
		return current
	}
}

// SecretMetadata is the caller input of an update. Only fields stored outside the secret
// value can change; a new value always means a new version.
type SecretMetadata struct {
	SecretIdentifier SecretIdentifier
	Version          uint64
	// State nil keeps the current state.
	State     *State
	NotBefore Patch[time.Time]
	NotAfter  Patch[time.Time]
	Comment   Patch[Comment]
	UserData  Patch[UserData]
}

// IsEmpty reports whether the update would change nothing besides the modified time.
func (m *SecretMetadata) IsEmpty() bool {
	return m.State == nil &&
		m.NotBefore.IsKeep() &&
		m.NotAfter.IsKeep() &&
		m.Comment.IsKeep() &&
		m.UserData.IsKeep()
}

// Validate checks the identifier, version and the values being set. The resulting
// window is checked by the engine once merged with the stored entry.
func (m *SecretMetadata) Validate() error {
	if err := m.SecretIdentifier.Validate(); err != nil {
		return err
	}
	if m.Version == 0 {
		return fmt.Errorf("%w: version must be greater than zero", ErrInvalidSecret)
	}
	if m.State != nil && !m.State.Valid() {
		return fmt.Errorf("%w: unknown state %d", ErrInvalidSecret, byte(*m.State))
	}
	if c, ok := m.Comment.Value(); ok {
		if err := validation.Validate(c, commentRules...); err != nil {
			return fmt.Errorf("%w: comment: %v", ErrInvalidSecret, err)
		}
	}
	if u, ok := m.UserData.Value(); ok {
		if err := validation.Validate(u, userDataRules...); err != nil {
			return fmt.Errorf("%w: user_data: %v", ErrInvalidSecret, err)
		}
	}
	return nil
}
