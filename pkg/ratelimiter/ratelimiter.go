package ratelimiter

// RateLimiter decides whether an incoming request may proceed.
type RateLimiter interface {
	// Allow reports whether one more request is permitted right now.
	Allow() bool
}
