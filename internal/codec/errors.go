package codec

import (
	"github.com/allisson/secretsgroup/internal/errors"
)

// Codec error definitions. Decoding failures wrap errors.ErrIntegrity: a buffer that
// cannot be parsed must never be partially trusted.
var (
	// ErrCorrupt indicates a truncated or internally inconsistent buffer.
	ErrCorrupt = errors.Wrap(errors.ErrIntegrity, "corrupt buffer")

	// ErrUnsupportedFormatVersion indicates an unknown buffer layout version.
	ErrUnsupportedFormatVersion = errors.Wrap(errors.ErrIntegrity, "unsupported format version")

	// ErrUnsupportedSchemaVersion indicates an entry written with an unknown schema version.
	ErrUnsupportedSchemaVersion = errors.Wrap(errors.ErrIntegrity, "unsupported schema version")

	// ErrInvalidSchema indicates a schema declaration error.
	ErrInvalidSchema = errors.Wrap(errors.ErrInvalidInput, "invalid schema")

	// ErrInvalidRecord indicates a record that does not match its schema.
	ErrInvalidRecord = errors.Wrap(errors.ErrInvalidInput, "invalid record")
)
