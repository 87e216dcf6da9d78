package domain

import (
	"fmt"
	"time"

	"github.com/allisson/secretsgroup/internal/codec"
	cryptoDomain "github.com/allisson/secretsgroup/internal/crypto/domain"
)

// EncryptionPayload is the structured plaintext sealed inside RawSecretEntry.EncryptedPayload.
//
// The identifier and version are repeated inside the payload so a decrypted payload can
// be checked against the record it was read from.
type EncryptionPayload struct {
	SecretIdentifier SecretIdentifier
	Version          uint64
	SecretValue      SecretValue
	UserData         UserData
	Comment          *Comment
	Created          time.Time
	Modified         time.Time
	CreatedBy        UserAlias
	ModifiedBy       UserAlias
}

// Zero wipes the secret value and user data.
func (p *EncryptionPayload) Zero() {
	if p == nil {
		return
	}
	p.SecretValue.Zero()
	cryptoDomain.Zero(p.UserData)
}

// payloadSchema is the codec schema of EncryptionPayload. Bump Version on any change.
// The identifier is padded like the file store's, so a sealed payload does not reveal
// the identifier length either.
var payloadSchema = codec.Schema{
	Version: 2,
	Fields: []codec.Field{
		{Name: "secret_identifier", Kind: codec.KindBytes, Padding: MaxIdentifierLength},
		{Name: "version", Kind: codec.KindInt64},
		{Name: "secret_type", Kind: codec.KindByte},
		{Name: "secret_value", Kind: codec.KindBytes},
		{Name: "user_data", Kind: codec.KindBytes, Optional: true},
		{Name: "comment", Kind: codec.KindBytes, Optional: true},
		{Name: "created", Kind: codec.KindInt64},
		{Name: "modified", Kind: codec.KindInt64},
		{Name: "created_by", Kind: codec.KindBytes},
		{Name: "modified_by", Kind: codec.KindBytes},
	},
}

// MarshalPayload encodes p. The returned buffer holds secret material; the caller zeroes it.
func MarshalPayload(p *EncryptionPayload) ([]byte, error) {
	userData := codec.Absent()
	if p.UserData != nil {
		userData = codec.Bytes(p.UserData)
	}
	comment := codec.Absent()
	if p.Comment != nil {
		comment = codec.String(string(*p.Comment))
	}

	rec := codec.Record{
		codec.String(string(p.SecretIdentifier)),
		codec.Int64(int64(p.Version)),
		codec.Byte(byte(p.SecretValue.Type)),
		codec.Bytes(p.SecretValue.Bytes()),
		userData,
		comment,
		codec.Int64(p.Created.Unix()),
		codec.Int64(p.Modified.Unix()),
		codec.String(string(p.CreatedBy)),
		codec.String(string(p.ModifiedBy)),
	}

	buf, err := payloadSchema.Encode([]codec.Record{rec})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return buf, nil
}

// UnmarshalPayload decodes a buffer produced by MarshalPayload. The result owns copies of
// all byte fields, so the caller may zero buf right away.
func UnmarshalPayload(buf []byte) (*EncryptionPayload, error) {
	records, err := payloadSchema.Decode(buf)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("%w: payload holds %d records", codec.ErrCorrupt, len(records))
	}
	rec := records[0]

	secretType := SecretType(rec[2].Byte)
	if !secretType.Valid() {
		cryptoDomain.Zero(rec[3].Bytes)
		cryptoDomain.Zero(rec[4].Bytes)
		return nil, fmt.Errorf("%w: unknown secret type %d", codec.ErrCorrupt, rec[2].Byte)
	}

	p := &EncryptionPayload{
		SecretIdentifier: SecretIdentifier(rec[0].Bytes),
		Version:          uint64(rec[1].Int),
		SecretValue:      NewSecretValue(secretType, rec[3].Bytes),
		Created:          time.Unix(rec[6].Int, 0).UTC(),
		Modified:         time.Unix(rec[7].Int, 0).UTC(),
		CreatedBy:        UserAlias(rec[8].Bytes),
		ModifiedBy:       UserAlias(rec[9].Bytes),
	}
	if rec[4].Present {
		p.UserData = UserData(rec[4].Bytes)
	}
	if rec[5].Present {
		c := Comment(rec[5].Bytes)
		p.Comment = &c
	}
	return p, nil
}
