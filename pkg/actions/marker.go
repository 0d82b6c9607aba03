package actions

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// OptimisticScheme prefixes locally synthesized record refs and message ids
// until the upstream returns the authoritative ones. The upstream decode
// boundary only accepts at:// refs, so a marker can never be mistaken for a
// confirmed record.
const OptimisticScheme = "optimistic://"

// NewOptimisticRef mints a fresh marker.
func NewOptimisticRef() string {
	return OptimisticScheme + ulid.Make().String()
}

// IsOptimisticRef reports whether ref is an unconfirmed local marker. A
// marker is never proof of a prior successful mutation.
func IsOptimisticRef(ref string) bool {
	return strings.HasPrefix(ref, OptimisticScheme)
}
