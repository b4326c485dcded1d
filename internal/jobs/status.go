package jobs

// Status represents the lifecycle state of a job in the
// jobs table. These values must match the text values
// stored in the database (jobs.status).
//
// The terminal values are exactly the strings the engine
// coordinator produces in JobOutput.Status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a job in this status will never change
// again.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	}
	return false
}
