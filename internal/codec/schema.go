// Package codec implements the fixed-schema binary record format used by the file-backed
// secrets store and by the encrypted payload.
//
// A buffer holds an ordered list of records that all follow one Schema:
//
//	[formatVersion:1][entryCount:8][entry]*[paddingLength:4][paddingBytes]
//
// Every entry starts with the schema version byte followed by the schema fields in
// declaration order. Fields are encoded by Kind:
//
//	KindBytes  [length:4][bytes]
//	KindInt64  8 bytes, big endian
//	KindByte   1 byte
//
// Optional fields are preceded by a presence byte. An absent optional field is still
// written as a zero-valued dummy of the same shape so entries keep a uniform layout.
//
// A KindBytes field may declare a padding width. The encoder reserves room as if the
// field always had that width but writes the true length; the accumulated shortfall of
// every entry is appended once, zero filled, at the end of the buffer. The encoded size
// therefore does not depend on the length of padded values as long as none exceeds its
// padding width.
package codec

import "fmt"

// FormatVersion is the only buffer layout version this package reads and writes.
const FormatVersion byte = 1

// Kind is the primitive on-wire representation of a field.
type Kind uint8

const (
	// KindBytes is a length-prefixed byte string.
	KindBytes Kind = iota + 1
	// KindInt64 is a fixed-width signed 64-bit integer.
	KindInt64
	// KindByte is a single byte, used for small enums.
	KindByte
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindInt64:
		return "int64"
	case KindByte:
		return "byte"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field describes one column of a Schema.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool
	// Padding is the reserved width of a KindBytes field. Zero disables padding.
	Padding int
}

// Schema is an ordered list of fields plus the version byte written in front of
// every entry.
type Schema struct {
	Version byte
	Fields  []Field
}

// Validate checks that the schema is internally consistent.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: schema has no fields", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field without name", ErrInvalidSchema)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case KindBytes, KindInt64, KindByte:
		default:
			return fmt.Errorf("%w: field %q has unknown %s", ErrInvalidSchema, f.Name, f.Kind)
		}
		if f.Padding < 0 || (f.Padding > 0 && f.Kind != KindBytes) {
			return fmt.Errorf("%w: field %q cannot be padded", ErrInvalidSchema, f.Name)
		}
	}
	return nil
}

// Index returns the position of the named field, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// minEntrySize is the smallest number of bytes an entry of this schema can take.
func (s Schema) minEntrySize() int {
	size := 1
	for _, f := range s.Fields {
		if f.Optional {
			size++
		}
		size += f.fixedWidth()
	}
	return size
}

// fixedWidth is the width of the field excluding variable-length content.
func (f Field) fixedWidth() int {
	switch f.Kind {
	case KindBytes:
		return 4
	case KindInt64:
		return 8
	default:
		return 1
	}
}

// Value holds one field of a Record. Only the member matching the field Kind is used.
type Value struct {
	// Present is false only for an absent optional field.
	Present bool
	Bytes   []byte
	Int     int64
	Byte    byte
}

// Record is one entry: values in schema field order.
type Record []Value

// Bytes returns a present KindBytes value.
func Bytes(b []byte) Value { return Value{Present: true, Bytes: b} }

// String returns a present KindBytes value holding s.
func String(s string) Value { return Value{Present: true, Bytes: []byte(s)} }

// Int64 returns a present KindInt64 value.
func Int64(i int64) Value { return Value{Present: true, Int: i} }

// Byte returns a present KindByte value.
func Byte(b byte) Value { return Value{Present: true, Byte: b} }

// Absent returns the value of an absent optional field.
func Absent() Value { return Value{} }
