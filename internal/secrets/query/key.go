package query

import (
	"fmt"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
)

// KeyCondition restricts a query to one partition (secret identifier) and optionally a
// range of sort keys (versions). Stores use it as an index lookup; streams re-check it.
type KeyCondition struct {
	id      domain.SecretIdentifier
	hasID   bool
	op      Op
	version uint64
	hasSort bool
}

// PartitionKey selects every version of id.
func PartitionKey(id domain.SecretIdentifier) KeyCondition {
	return KeyCondition{id: id, hasID: true}
}

// SortKey selects versions comparing to version with op in every partition.
func SortKey(op Op, version uint64) KeyCondition {
	return KeyCondition{op: op, version: version, hasSort: true}
}

// Version adds a sort key condition to k.
func (k KeyCondition) Version(op Op, version uint64) KeyCondition {
	k.op = op
	k.version = version
	k.hasSort = true
	return k
}

// Partition returns the partition key, if any.
func (k KeyCondition) Partition() (domain.SecretIdentifier, bool) {
	return k.id, k.hasID
}

// Sort returns the sort key condition, if any.
func (k KeyCondition) Sort() (Op, uint64, bool) {
	return k.op, k.version, k.hasSort
}

// IsZero reports whether k selects everything.
func (k KeyCondition) IsZero() bool {
	return !k.hasID && !k.hasSort
}

// Matches reports whether e satisfies the key condition.
func (k KeyCondition) Matches(e *domain.RawSecretEntry) bool {
	if k.hasID && e.SecretIdentifier != k.id {
		return false
	}
	if k.hasSort && !k.op.compareUint(e.Version, k.version) {
		return false
	}
	return true
}

func (k KeyCondition) String() string {
	switch {
	case k.hasID && k.hasSort:
		return fmt.Sprintf("secret_identifier = %q AND version %s %d", k.id, k.op, k.version)
	case k.hasID:
		return fmt.Sprintf("secret_identifier = %q", k.id)
	case k.hasSort:
		return fmt.Sprintf("version %s %d", k.op, k.version)
	default:
		return "true"
	}
}
