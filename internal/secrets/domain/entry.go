package domain

import (
	"bytes"
	"strconv"
	"time"

	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

// Encryption context keys bound into every secret ciphertext.
const (
	ContextKeySecretsGroup     = "secrets_group"
	ContextKeySecretIdentifier = "secret_identifier"
	ContextKeyVersion          = "version"
	ContextKeyState            = "state"
	ContextKeyNotBefore        = "not_before"
	ContextKeyNotAfter         = "not_after"
)

// RawSecretEntry is one stored secret version as persisted by a store. Everything but
// EncryptedPayload is plaintext and queryable; version is the sort key.
type RawSecretEntry struct {
	SecretIdentifier SecretIdentifier
	Version          uint64
	State            State
	NotBefore        *time.Time
	NotAfter         *time.Time
	EncryptedPayload []byte
}

// IsActive reports whether the entry is enabled and now falls inside its window.
func (e RawSecretEntry) IsActive(now time.Time) bool {
	return IsActive(e.State, e.NotBefore, e.NotAfter, now)
}

// Clone returns a deep copy so stores never share buffers with callers.
func (e RawSecretEntry) Clone() RawSecretEntry {
	out := e
	out.NotBefore = cloneTime(e.NotBefore)
	out.NotAfter = cloneTime(e.NotAfter)
	out.EncryptedPayload = bytes.Clone(e.EncryptedPayload)
	return out
}

// Equal reports whether both entries have identical fields, comparing timestamps at
// second precision as persisted.
func (e RawSecretEntry) Equal(other RawSecretEntry) bool {
	return e.SecretIdentifier == other.SecretIdentifier &&
		e.Version == other.Version &&
		e.State == other.State &&
		timeEqual(e.NotBefore, other.NotBefore) &&
		timeEqual(e.NotAfter, other.NotAfter) &&
		bytes.Equal(e.EncryptedPayload, other.EncryptedPayload)
}

// EncryptionContext derives the context that binds the payload of this entry to its
// plaintext fields inside group.
func (e RawSecretEntry) EncryptionContext(group SecretsGroupIdentifier) cryptoDomain.EncryptionContext {
	return NewEncryptionContext(group, e.SecretIdentifier, e.Version, e.State, e.NotBefore, e.NotAfter)
}

// NewEncryptionContext derives the encryption context of a secret version. Absent window
// bounds are omitted, so setting or clearing one changes the context.
func NewEncryptionContext(
	group SecretsGroupIdentifier,
	id SecretIdentifier,
	version uint64,
	state State,
	notBefore, notAfter *time.Time,
) cryptoDomain.EncryptionContext {
	ec := cryptoDomain.EncryptionContext{
		ContextKeySecretsGroup:     group.String(),
		ContextKeySecretIdentifier: string(id),
		ContextKeyVersion:          strconv.FormatUint(version, 10),
		ContextKeyState:            state.String(),
	}
	if notBefore != nil {
		ec[ContextKeyNotBefore] = strconv.FormatInt(notBefore.Unix(), 10)
	}
	if notAfter != nil {
		ec[ContextKeyNotAfter] = strconv.FormatInt(notAfter.Unix(), 10)
	}
	return ec
}

// GroupEncryptionContext is the context used for whole-store encryption of a group.
func GroupEncryptionContext(group SecretsGroupIdentifier) cryptoDomain.EncryptionContext {
	return cryptoDomain.EncryptionContext{ContextKeySecretsGroup: group.String()}
}

// IsActive is the active predicate: the state is ENABLED and now lies within the
// optional [notBefore, notAfter] window, bounds inclusive. Times compare at second
// precision, the precision stores persist.
func IsActive(state State, notBefore, notAfter *time.Time, now time.Time) bool {
	if state != StateEnabled {
		return false
	}
	if notBefore != nil && notBefore.Unix() > now.Unix() {
		return false
	}
	if notAfter != nil && notAfter.Unix() < now.Unix() {
		return false
	}
	return true
}

// SecretEntry is the decrypted view of a secret version. It only exists in memory and
// must be zeroed by its owner as soon as it is no longer needed.
type SecretEntry struct {
	SecretIdentifier SecretIdentifier
	Version          uint64
	State            State
	NotBefore        *time.Time
	NotAfter         *time.Time
	SecretValue      SecretValue
	UserData         UserData
	Comment          *Comment
	Created          time.Time
	Modified         time.Time
	CreatedBy        UserAlias
	ModifiedBy       UserAlias
}

// IsActive reports whether the entry is active at now.
func (e *SecretEntry) IsActive(now time.Time) bool {
	return IsActive(e.State, e.NotBefore, e.NotAfter, now)
}

// Zero wipes the secret value and user data.
func (e *SecretEntry) Zero() {
	if e == nil {
		return
	}
	e.SecretValue.Zero()
	cryptoDomain.Zero(e.UserData)
}

// NewSecretEntry is the caller input for creating a secret or adding a version. The
// version number is assigned by the engine.
type NewSecretEntry struct {
	SecretIdentifier SecretIdentifier
	// State defaults to StateEnabled when zero.
	State       State
	NotBefore   *time.Time
	NotAfter    *time.Time
	SecretValue SecretValue
	UserData    UserData
	Comment     *Comment
}

// Zero wipes the secret value and user data of the input.
func (n *NewSecretEntry) Zero() {
	if n == nil {
		return
	}
	n.SecretValue.Zero()
	cryptoDomain.Zero(n.UserData)
}

// TruncateTime drops sub-second precision; stores persist epoch seconds.
func TruncateTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Truncate(time.Second).UTC()
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Unix() == b.Unix()
}
