// Package dedup defines the Dedup Key Store: a first-writer-wins marker per
// deterministic bucket id. Its atomic CreateIfAbsent is the concurrency
// primitive the claim path's at-most-once acceptance rests on.
package dedup

import "context"

type Store interface {
	// CreateIfAbsent writes the marker for bucketID unless one exists.
	// Under concurrency exactly one caller observes created=true.
	CreateIfAbsent(ctx context.Context, bucketID string) (created bool, err error)
}
