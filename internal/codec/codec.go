package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes records according to the schema.
func (s Schema) Encode(records []Record) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	capacity := 1 + 8 + 4
	for i, r := range records {
		if len(r) != len(s.Fields) {
			return nil, fmt.Errorf(
				"%w: entry %d has %d values, schema has %d fields",
				ErrInvalidRecord, i, len(r), len(s.Fields),
			)
		}
		capacity += s.reservedSize(r)
	}

	buf := make([]byte, 0, capacity)
	buf = append(buf, FormatVersion)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(records)))

	var shortfall int
	for i, r := range records {
		var err error
		var missing int
		buf, missing, err = s.appendEntry(buf, r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		shortfall += missing
	}

	if uint64(shortfall) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: padding overflow", ErrInvalidRecord)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(shortfall))
	buf = append(buf, make([]byte, shortfall)...)

	return buf, nil
}

// reservedSize is the size an entry takes when every padded field is counted at
// its padding width.
func (s Schema) reservedSize(r Record) int {
	size := 1
	for i, f := range s.Fields {
		if f.Optional {
			size++
		}
		size += f.fixedWidth()
		if f.Kind == KindBytes {
			n := 0
			if r[i].Present {
				n = len(r[i].Bytes)
			}
			size += max(n, f.Padding)
		}
	}
	return size
}

func (s Schema) appendEntry(buf []byte, r Record) ([]byte, int, error) {
	buf = append(buf, s.Version)

	var shortfall int
	for i, f := range s.Fields {
		v := r[i]
		if f.Optional {
			if v.Present {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
				v = Value{}
			}
		} else if !v.Present {
			return nil, 0, fmt.Errorf("%w: required field %q is absent", ErrInvalidRecord, f.Name)
		}

		switch f.Kind {
		case KindBytes:
			if uint64(len(v.Bytes)) > math.MaxUint32 {
				return nil, 0, fmt.Errorf("%w: field %q too long", ErrInvalidRecord, f.Name)
			}
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Bytes)))
			buf = append(buf, v.Bytes...)
			if f.Padding > len(v.Bytes) {
				shortfall += f.Padding - len(v.Bytes)
			}
		case KindInt64:
			buf = binary.BigEndian.AppendUint64(buf, uint64(v.Int))
		case KindByte:
			buf = append(buf, v.Byte)
		}
	}

	return buf, shortfall, nil
}

// Decode parses a buffer produced by Encode with the same schema.
func (s Schema) Decode(buf []byte) ([]Record, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	r := reader{buf: buf}
	version, err := r.nextByte()
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormatVersion, version)
	}

	count, err := r.nextUint64()
	if err != nil {
		return nil, err
	}
	if count > uint64(r.remaining()/s.minEntrySize()) {
		return nil, fmt.Errorf("%w: entry count %d exceeds buffer size", ErrCorrupt, count)
	}

	records := make([]Record, 0, count)
	var expectedPadding int
	for i := uint64(0); i < count; i++ {
		record, shortfall, err := s.readEntry(&r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, record)
		expectedPadding += shortfall
	}

	padding, err := r.nextUint32()
	if err != nil {
		return nil, err
	}
	if int(padding) != expectedPadding || int(padding) != r.remaining() {
		return nil, fmt.Errorf(
			"%w: padding is %d bytes, expected %d with %d bytes left",
			ErrCorrupt, padding, expectedPadding, r.remaining(),
		)
	}
	for _, b := range r.buf[r.off:] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero padding", ErrCorrupt)
		}
	}

	return records, nil
}

func (s Schema) readEntry(r *reader) (Record, int, error) {
	version, err := r.nextByte()
	if err != nil {
		return nil, 0, err
	}
	if version != s.Version {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, version)
	}

	record := make(Record, len(s.Fields))
	var shortfall int
	for i, f := range s.Fields {
		present := true
		if f.Optional {
			flag, err := r.nextByte()
			if err != nil {
				return nil, 0, err
			}
			switch flag {
			case 0:
				present = false
			case 1:
			default:
				return nil, 0, fmt.Errorf("%w: presence flag %d for field %q", ErrCorrupt, flag, f.Name)
			}
		}

		var v Value
		switch f.Kind {
		case KindBytes:
			n, err := r.nextUint32()
			if err != nil {
				return nil, 0, err
			}
			b, err := r.next(int(n))
			if err != nil {
				return nil, 0, err
			}
			if f.Padding > len(b) {
				shortfall += f.Padding - len(b)
			}
			if len(b) > 0 {
				v.Bytes = append([]byte{}, b...)
			}
		case KindInt64:
			n, err := r.nextUint64()
			if err != nil {
				return nil, 0, err
			}
			v.Int = int64(n)
		case KindByte:
			b, err := r.nextByte()
			if err != nil {
				return nil, 0, err
			}
			v.Byte = b
		}

		if !present {
			// Absent fields are written as zero-valued dummies.
			if v.Bytes != nil || v.Int != 0 || v.Byte != 0 {
				return nil, 0, fmt.Errorf("%w: absent field %q carries data", ErrCorrupt, f.Name)
			}
			continue
		}
		if f.Kind == KindBytes && v.Bytes == nil {
			v.Bytes = []byte{}
		}
		v.Present = true
		record[i] = v
	}

	return record, shortfall, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: truncated at offset %d", ErrCorrupt, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) nextByte() (byte, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) nextUint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) nextUint64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
