// Package queue implements the async job plumbing named in SPEC_FULL.md's
// async-processing section: Redis Streams producer/consumer pairs driving
// primitive-library ingestion and bounded-retry refinement work, grounded
// a single job struct and consumer group generalized to this system's two
// job kinds.
package queue

import "fmt"

// TaskType discriminates the job kinds carried on the same streams.
type TaskType string

const (
	// TaskTypePrimitiveIngest asks the Primitive Library to fetch, cache,
	// and content-address a new SVG fragment (asset upload, generated
	// symbol, or backend sync) without blocking the request that
	// triggered it.
	TaskTypePrimitiveIngest TaskType = "primitive_ingest"
	// TaskTypeRefinement asks the Refinement Loop to run a bounded
	// iterate/validate/auto-fix cycle against an already-solved scene,
	// used when a request opts into async refinement rather than paying
	// for it inline.
	TaskTypeRefinement TaskType = "refinement"
)

// Task is the in-process job handed to a MessageProcessor. Only the fields
// relevant to TaskType are populated; ParseMessage enforces that.
type Task struct {
	TaskType  TaskType
	RequestID string
	TraceID   string
	Attempt   int

	// TaskTypePrimitiveIngest
	PrimitiveKey string // content-address cache key the library should fill
	SourceDomain string // canonical.Domain, hint for which backend to query
	SourceURI    string // where to fetch the fragment from, if external

	// TaskTypeRefinement
	SceneRef   string // storage reference to the scene awaiting refinement
	Domain     string // canonical.Domain driving which validators run
	TargetStep int    // which refinement iteration this job resumes at

	// messageID is the originating stream entry id, set by ParseMessage
	// and used by Ack/Requeue/SendDLQ; zero value for hand-built Tasks
	// passed straight to a Producer.
	messageID string
}

// StreamName returns the shared stream both job kinds are produced onto;
// a single stream keeps consumer-group bookkeeping (and ordering within a
// request) in one place, multiplexing every job kind onto one stream
// discriminated by TaskType.
func StreamName(env string) string {
	return fmt.Sprintf("diagramforge:jobs:%s", env)
}

// DLQStreamName returns the dead-letter stream a RedisConsumer sends to
// once a job exhausts its retry budget.
func DLQStreamName(env string) string {
	return fmt.Sprintf("diagramforge:jobs:%s:dlq", env)
}
