package id

import "strconv"

// NewRequestID returns a string-formatted snowflake ID suitable for use as
// the pipeline's request_id: time-ordered, unique per instance, and safe to
// use as a file name component (trace log / trace JSON paths key off it).
func NewRequestID() string {
	return strconv.FormatInt(New(), 36)
}
