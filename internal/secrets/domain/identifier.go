// Package domain defines the data model of a secrets group: identifiers, the plaintext
// RawSecretEntry persisted by stores, the EncryptionPayload sealed inside it, and the
// decrypted SecretEntry view.
package domain

import (
	"fmt"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/secretsgroup/internal/validation"
)

// MaxIdentifierLength is the longest accepted secret identifier in bytes. The file store
// pads every identifier to this width so file sizes do not reveal name lengths.
const MaxIdentifierLength = 128

// SecretIdentifier names a secret within a group and is the partition key of every store.
type SecretIdentifier string

// Validate checks the identifier syntax and length.
func (id SecretIdentifier) Validate() error {
	err := validation.Validate(string(id),
		validation.Required,
		validation.Length(1, MaxIdentifierLength),
		customValidation.Identifier,
	)
	if err != nil {
		return fmt.Errorf("%w: secret_identifier: %v", ErrInvalidSecret, err)
	}
	return nil
}

func (id SecretIdentifier) String() string {
	return string(id)
}

// SecretsGroupIdentifier identifies one logical store instance: one group file, one
// table, or one partition of a SQL table.
type SecretsGroupIdentifier struct {
	Region string
	Name   string
}

// Validate checks region and name.
func (g SecretsGroupIdentifier) Validate() error {
	err := validation.ValidateStruct(&g,
		validation.Field(&g.Region, validation.Required, validation.Length(1, 64), customValidation.Region),
		validation.Field(&g.Name, validation.Required, validation.Length(1, 128), customValidation.Identifier),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	return nil
}

// String returns "region/name".
func (g SecretsGroupIdentifier) String() string {
	return g.Region + "/" + g.Name
}
