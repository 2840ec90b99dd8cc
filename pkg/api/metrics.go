package api

import "time"

// Metrics provides observability for API request handling.
//
// The interface is optional: pass nil to disable collection with zero
// overhead. Implementations must be safe for concurrent use.
type Metrics interface {
	// RecordRequest records a completed request with its matched route
	// pattern, status code, and duration. The route is the chi pattern
	// ("/api/v1/directories/{uuid}"), not the raw path, so label
	// cardinality stays bounded.
	RecordRequest(method, route string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(method string)
}
