// Package guard holds the in-process protective checks applied around bet
// placement and move engine calls: rate limiting, request deduplication, and
// a circuit breaker for the engine.
package guard

// Result is the outcome of a guard check.
type Result struct {
	Allowed bool
	Reason  string
	Guard   string
}
