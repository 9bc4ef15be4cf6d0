// Package feed provides access to the external spot-price feed.
package feed

import "context"

// Sampler fetches a single price observation from an external feed.
//
// Implementations must report transient problems (network errors, malformed
// responses, unparsable amounts) as an error return, never by panicking.
// Retrying is the caller's decision; the sampler makes one attempt.
type Sampler interface {
	// FetchOne performs one fetch-and-parse attempt and returns the observed
	// price, or an error when no observation could be obtained.
	FetchOne(ctx context.Context) (float64, error)
}
