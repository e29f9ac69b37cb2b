// Package cache implements the request-driven response cache and its
// tag-based invalidation scheme.
//
// Successful GET responses are stored in redis under keys derived from
// the route and its pagination parameters. Each stored key is also
// indexed into redis sets keyed by tags derived from the request shape
// (the route's entity, its singular form, and every path parameter).
//
// When a mutating request on the same entity succeeds, the invalidator
// collects every key recorded under the overlapping tags, deletes the
// consumed tag sets and the keys themselves, then sweeps the residual
// key patterns with SCAN. The sweep runs in the background after the
// response is written.
//
// The cache fails open everywhere: a redis outage turns reads into
// misses and makes sweeps log and move on, but never fails a request.
package cache
