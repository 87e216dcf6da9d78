package query

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"time"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
)

// Source provides the candidate records of a Stream. Implementations should use key to
// narrow the scan when they can; records outside key are filtered out again anyway.
type Source interface {
	Scan(ctx context.Context, key KeyCondition) ([]domain.RawSecretEntry, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, key KeyCondition) ([]domain.RawSecretEntry, error)

// Scan calls f.
func (f SourceFunc) Scan(ctx context.Context, key KeyCondition) ([]domain.RawSecretEntry, error) {
	return f(ctx, key)
}

// Stream is an immutable, lazily evaluated query over a Source. Builder methods return
// a new Stream; nothing is read until a terminal method runs.
//
// Evaluation always applies the key condition and every filter first, then orders the
// result by secret identifier ascending and version ascending (descending after
// Reverse), then keeps only the first record per identifier if UniquePrimaryKey was
// requested.
type Stream struct {
	source  Source
	key     KeyCondition
	filters []Condition
	reverse bool
	unique  bool
	clock   func() time.Time
}

// NewStream creates a stream over source.
func NewStream(source Source) Stream {
	return Stream{source: source, clock: time.Now}
}

// WithClock sets the time source sampled once per evaluation for time dependent
// conditions such as Active.
func (s Stream) WithClock(clock func() time.Time) Stream {
	s.clock = clock
	return s
}

// Key restricts the stream with a key condition, replacing any previous one.
func (s Stream) Key(key KeyCondition) Stream {
	s.key = key
	return s
}

// Filter adds an attribute condition. Multiple filters are combined with AND.
func (s Stream) Filter(cond Condition) Stream {
	s.filters = append(slices.Clip(s.filters), cond)
	return s
}

// Reverse orders versions descending.
func (s Stream) Reverse() Stream {
	s.reverse = true
	return s
}

// UniquePrimaryKey keeps only the first record of every secret identifier under the
// stream ordering. Combined with Reverse it yields the highest matching version.
func (s Stream) UniquePrimaryKey() Stream {
	s.unique = true
	return s
}

// ToList evaluates the stream.
func (s Stream) ToList(ctx context.Context) ([]domain.RawSecretEntry, error) {
	if s.source == nil {
		return nil, nil
	}

	candidates, err := s.source.Scan(ctx, s.key)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if s.clock != nil {
		now = s.clock()
	}

	out := make([]domain.RawSecretEntry, 0, len(candidates))
	for i := range candidates {
		e := &candidates[i]
		if !s.key.Matches(e) || !s.matches(e, now) {
			continue
		}
		out = append(out, *e)
	}

	slices.SortFunc(out, func(a, b domain.RawSecretEntry) int {
		if c := cmp.Compare(a.SecretIdentifier, b.SecretIdentifier); c != 0 {
			return c
		}
		if s.reverse {
			return cmp.Compare(b.Version, a.Version)
		}
		return cmp.Compare(a.Version, b.Version)
	})

	if s.unique {
		out = slices.CompactFunc(out, func(a, b domain.RawSecretEntry) bool {
			return a.SecretIdentifier == b.SecretIdentifier
		})
	}
	return out, nil
}

// First returns the first record of the stream.
func (s Stream) First(ctx context.Context) (domain.RawSecretEntry, bool, error) {
	list, err := s.ToList(ctx)
	if err != nil || len(list) == 0 {
		return domain.RawSecretEntry{}, false, err
	}
	return list[0], true, nil
}

// Count returns the number of records of the stream.
func (s Stream) Count(ctx context.Context) (int, error) {
	list, err := s.ToList(ctx)
	return len(list), err
}

// All evaluates the stream when iteration starts. An evaluation error is yielded once
// with a zero entry.
func (s Stream) All(ctx context.Context) iter.Seq2[domain.RawSecretEntry, error] {
	return func(yield func(domain.RawSecretEntry, error) bool) {
		list, err := s.ToList(ctx)
		if err != nil {
			yield(domain.RawSecretEntry{}, err)
			return
		}
		for _, e := range list {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s Stream) matches(e *domain.RawSecretEntry, now time.Time) bool {
	for _, f := range s.filters {
		if !f.Matches(e, now) {
			return false
		}
	}
	return true
}

// Slice is a Source over an in-memory list, used by tests and by stores that keep every
// record in memory.
type Slice []domain.RawSecretEntry

// Scan returns the entries matching key.
func (s Slice) Scan(_ context.Context, key KeyCondition) ([]domain.RawSecretEntry, error) {
	out := make([]domain.RawSecretEntry, 0, len(s))
	for i := range s {
		if key.Matches(&s[i]) {
			out = append(out, s[i])
		}
	}
	return out, nil
}
