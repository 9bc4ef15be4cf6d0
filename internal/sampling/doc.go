// Package sampling implements the concurrent sampling and aggregation engine.
//
// An Orchestrator spawns a fixed number of workers that share a single start
// instant and deadline. Each worker repeatedly polls the price feed, keeps a
// local sum and count, and on reaching the deadline contributes its local
// average to a shared Aggregator. The orchestrator joins all workers before
// reducing the aggregator to the final mean-of-means, so the reduction always
// observes every contribution.
//
// A worker that collects zero samples contributes NaN (0/0), which propagates
// into the final aggregate. This is deliberate: an empty observation window
// is surfaced, not masked.
package sampling
