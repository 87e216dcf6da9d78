package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func entry(id string, version uint64, state domain.State, nb, na *time.Time) domain.RawSecretEntry {
	return domain.RawSecretEntry{
		SecretIdentifier: domain.SecretIdentifier(id),
		Version:          version,
		State:            state,
		NotBefore:        nb,
		NotAfter:         na,
		EncryptedPayload: []byte{byte(version)},
	}
}

func versions(entries []domain.RawSecretEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.SecretIdentifier)+"#"+string(rune('0'+e.Version)))
	}
	return out
}

func TestActive(t *testing.T) {
	tests := []struct {
		name  string
		entry domain.RawSecretEntry
		want  bool
	}{
		{
			name:  "enabled without window",
			entry: entry("a", 1, domain.StateEnabled, nil, nil),
			want:  true,
		},
		{
			name:  "enabled inside window",
			entry: entry("a", 1, domain.StateEnabled, ptr(now.Add(-time.Hour)), ptr(now.Add(time.Hour))),
			want:  true,
		},
		{
			name:  "disabled inside window",
			entry: entry("a", 1, domain.StateDisabled, ptr(now.Add(-time.Hour)), ptr(now.Add(time.Hour))),
			want:  false,
		},
		{
			name:  "expired",
			entry: entry("a", 1, domain.StateEnabled, ptr(now.Add(-2*time.Hour)), ptr(now.Add(-time.Hour))),
			want:  false,
		},
		{
			name:  "not yet valid",
			entry: entry("a", 1, domain.StateEnabled, ptr(now.Add(time.Hour)), nil),
			want:  false,
		},
		{
			name:  "bounds are inclusive",
			entry: entry("a", 1, domain.StateEnabled, ptr(now), ptr(now)),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Active().Matches(&tt.entry, now))
			assert.Equal(t, tt.want, ActiveAt(now).Matches(&tt.entry, time.Time{}))
		})
	}
}

func TestActive_RecomputedPerEvaluation(t *testing.T) {
	source := Slice{entry("a", 1, domain.StateEnabled, nil, ptr(now))}
	clock := now.Add(-time.Minute)
	stream := NewStream(source).Filter(Active()).WithClock(func() time.Time { return clock })

	count, err := stream.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	clock = now.Add(time.Minute)
	count, err = stream.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestConditions(t *testing.T) {
	e := entry("a", 1, domain.StateEnabled, ptr(now), nil)

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{name: "state is", cond: StateIs(domain.StateEnabled), want: true},
		{name: "state is not", cond: CompareState(OpNe, domain.StateEnabled), want: false},
		{name: "time equal", cond: CompareTime(AttrNotBefore, OpEq, now), want: true},
		{name: "time less", cond: CompareTime(AttrNotBefore, OpLt, now), want: false},
		{name: "time greater or equal", cond: CompareTime(AttrNotBefore, OpGe, now.Add(-time.Second)), want: true},
		{name: "absent attribute never compares", cond: CompareTime(AttrNotAfter, OpGt, time.Time{}), want: false},
		{name: "present", cond: Present(AttrNotBefore), want: true},
		{name: "absent", cond: Absent(AttrNotAfter), want: true},
		{name: "and", cond: And(Present(AttrNotBefore), Present(AttrNotAfter)), want: false},
		{name: "or", cond: Or(Present(AttrNotBefore), Present(AttrNotAfter)), want: true},
		{name: "not", cond: Not(Present(AttrNotAfter)), want: true},
		{name: "empty and", cond: And(), want: true},
		{name: "empty or", cond: Or(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Matches(&e, now), tt.cond.String())
		})
	}
}

func TestKeyCondition(t *testing.T) {
	e := entry("a", 2, domain.StateEnabled, nil, nil)

	assert.True(t, KeyCondition{}.Matches(&e))
	assert.True(t, KeyCondition{}.IsZero())
	assert.True(t, PartitionKey("a").Matches(&e))
	assert.False(t, PartitionKey("b").Matches(&e))
	assert.True(t, PartitionKey("a").Version(OpEq, 2).Matches(&e))
	assert.False(t, PartitionKey("a").Version(OpGt, 2).Matches(&e))
	assert.True(t, SortKey(OpLe, 2).Matches(&e))
	assert.False(t, SortKey(OpLt, 2).Matches(&e))

	id, ok := PartitionKey("a").Partition()
	assert.True(t, ok)
	assert.Equal(t, domain.SecretIdentifier("a"), id)

	op, v, ok := SortKey(OpGe, 3).Sort()
	assert.True(t, ok)
	assert.Equal(t, OpGe, op)
	assert.Equal(t, uint64(3), v)

	assert.Equal(t, `secret_identifier = "a" AND version >= 1`, PartitionKey("a").Version(OpGe, 1).String())
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	source := Slice{
		entry("b", 1, domain.StateEnabled, nil, nil),
		entry("a", 3, domain.StateEnabled, nil, nil),
		entry("a", 1, domain.StateEnabled, nil, nil),
		entry("a", 2, domain.StateEnabled, nil, nil),
		entry("b", 2, domain.StateDisabled, nil, nil),
		entry("c", 1, domain.StateEnabled, nil, ptr(now.Add(-time.Hour))),
	}
	base := NewStream(source).WithClock(func() time.Time { return now })

	t.Run("Success_AscendingByDefault", func(t *testing.T) {
		list, err := base.ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a#1", "a#2", "a#3", "b#1", "b#2", "c#1"}, versions(list))
	})

	t.Run("Success_Reverse", func(t *testing.T) {
		list, err := base.Reverse().ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a#3", "a#2", "a#1", "b#2", "b#1", "c#1"}, versions(list))
	})

	t.Run("Success_LatestActivePerSecret", func(t *testing.T) {
		list, err := base.Filter(Active()).Reverse().UniquePrimaryKey().ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a#3", "b#1"}, versions(list))
	})

	t.Run("Success_UniqueAscendingKeepsFirstVersion", func(t *testing.T) {
		list, err := base.UniquePrimaryKey().ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a#1", "b#1", "c#1"}, versions(list))
	})

	t.Run("Success_KeyCondition", func(t *testing.T) {
		list, err := base.Key(PartitionKey("a").Version(OpGe, 2)).ToList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a#2", "a#3"}, versions(list))
	})

	t.Run("Success_First", func(t *testing.T) {
		e, ok, err := base.Key(PartitionKey("a")).Reverse().First(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(3), e.Version)

		_, ok, err = base.Key(PartitionKey("zzz")).First(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Success_BuildersDoNotMutate", func(t *testing.T) {
		filtered := base.Filter(StateIs(domain.StateDisabled))
		_ = filtered.Filter(Present(AttrNotAfter))

		count, err := filtered.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = base.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, count)
	})

	t.Run("Success_All", func(t *testing.T) {
		var got []domain.RawSecretEntry
		for e, err := range base.Key(PartitionKey("b")).All(ctx) {
			require.NoError(t, err)
			got = append(got, e)
		}
		assert.Equal(t, []string{"b#1", "b#2"}, versions(got))
	})

	t.Run("Success_AllStopsEarly", func(t *testing.T) {
		n := 0
		for range base.All(ctx) {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})

	t.Run("Error_SourceFails", func(t *testing.T) {
		failing := NewStream(SourceFunc(func(context.Context, KeyCondition) ([]domain.RawSecretEntry, error) {
			return nil, errors.New("backend unavailable")
		}))

		_, err := failing.ToList(ctx)
		assert.ErrorContains(t, err, "backend unavailable")

		for _, err := range failing.All(ctx) {
			assert.ErrorContains(t, err, "backend unavailable")
		}
	})

	t.Run("Success_NilSource", func(t *testing.T) {
		list, err := Stream{}.ToList(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestStream_SourceReceivesKey(t *testing.T) {
	var got KeyCondition
	source := SourceFunc(func(_ context.Context, key KeyCondition) ([]domain.RawSecretEntry, error) {
		got = key
		return []domain.RawSecretEntry{entry("x", 1, domain.StateEnabled, nil, nil)}, nil
	})

	list, err := NewStream(source).Key(PartitionKey("a")).ToList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "records outside the key condition are dropped")
	assert.Equal(t, PartitionKey("a"), got)
}
