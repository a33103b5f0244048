// Package redis manages the optional distributed backend connection.
//
// The connection URL is the single switch between distributed and in-process
// modes: when REDIS_URL is empty, Connect returns ErrEmptyConnectionURL and
// the serving process continues in single-instance mode. A configured but
// unreachable Redis is retried with a bounded budget and then reported as
// ErrRedisNotReady; the caller decides whether that is fatal.
package redis
