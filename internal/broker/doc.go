// Package broker sends built queries to a Druid broker over HTTP.
//
// The client posts the canonical request to /druid/v2 and returns the raw
// response body untouched. Transient failures are retried with exponential
// backoff behind a circuit breaker, outbound requests can be rate limited,
// and identical requests can be answered from an in-memory LRU cache.
package broker
