// Package ratelimit provides the request limiters behind per-key limits.
//
//   - TokenBucket: requests per minute with a constant refill rate
//   - ConcurrentLimiter: a counting semaphore for in-flight requests
//   - Limiter: both of the above for one key
//
// All types are safe for concurrent use.
package ratelimit
