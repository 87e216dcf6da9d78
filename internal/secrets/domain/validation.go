package domain

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/secretsgroup/internal/validation"
)

var (
	commentRules  = []validation.Rule{validation.Length(0, MaxCommentLength), customValidation.UTF8}
	userDataRules = []validation.Rule{validation.Length(0, MaxUserDataSize)}
)

// Validate checks type and size of the secret material.
func (v SecretValue) Validate() error {
	if !v.Type.Valid() {
		return fmt.Errorf("unknown secret type %d", byte(v.Type))
	}
	if len(v.value) == 0 {
		return errors.New("cannot be blank")
	}
	if len(v.value) > MaxSecretValueSize {
		return fmt.Errorf("must be at most %d bytes", MaxSecretValueSize)
	}
	if v.Type == SecretTypeOpaque && !utf8.Valid(v.value) {
		return errors.New("opaque secrets must be valid UTF-8")
	}
	return nil
}

// Validate checks a new secret before it is encrypted.
func (n *NewSecretEntry) Validate() error {
	if err := n.SecretIdentifier.Validate(); err != nil {
		return err
	}

	err := validation.ValidateStruct(n,
		validation.Field(&n.State, validation.By(func(value interface{}) error {
			s, _ := value.(State)
			if s != 0 && !s.Valid() {
				return fmt.Errorf("unknown state %d", byte(s))
			}
			return nil
		})),
		validation.Field(&n.SecretValue),
		validation.Field(&n.UserData, userDataRules...),
		validation.Field(&n.Comment, commentRules...),
		validation.Field(&n.NotAfter, validation.By(func(interface{}) error {
			return ValidateWindow(n.NotBefore, n.NotAfter)
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return nil
}

// ValidateWindow checks that notAfter does not precede notBefore, at second precision.
func ValidateWindow(notBefore, notAfter *time.Time) error {
	if notBefore == nil || notAfter == nil {
		return nil
	}
	if notAfter.Unix() < notBefore.Unix() {
		return errors.New("not_after must not be before not_before")
	}
	return nil
}
