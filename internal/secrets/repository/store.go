// Package repository implements the secrets group Store contract on three backends:
// an encrypted single-file store on a gocloud.dev/blob bucket, a table store on a
// gocloud.dev/docstore collection, and a SQL store on PostgreSQL or MySQL.
//
// Every store persists RawSecretEntry values keyed by (secret identifier, version) and
// exposes them through query.Stream. Stores never see plaintext secret material.
package repository

import (
	"slices"
	"time"

	"github.com/allisson/secretsgroup/internal/secrets/domain"
)

// unixPtr converts an optional timestamp to epoch seconds.
func unixPtr(t *time.Time) (int64, bool) {
	if t == nil {
		return 0, false
	}
	return t.Unix(), true
}

// timePtr is the inverse of unixPtr.
func timePtr(sec int64, ok bool) *time.Time {
	if !ok {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func sortedKeys[V any](m map[domain.SecretIdentifier]V) []domain.SecretIdentifier {
	keys := make([]domain.SecretIdentifier, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
