package logmap

import (
	"errors"
	"fmt"
)

// JobInfo identifies one job of a parallel map.
type JobInfo struct {
	// Index is the job's position in the prepared input list (after
	// shuffle and limit).
	Index int

	// Name is the mapped function's name.
	Name string
}

// JobError wraps an error together with the [JobInfo] of the job that
// produced it. Every failure surfaced by [ParallelMap] is a JobError so
// callers can attribute errors to specific inputs.
type JobError struct {
	Job JobInfo
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %d of %s failed: %v", e.Job.Index, e.Job.Name, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// IsJobError reports whether err (or any error in its chain) is a [*JobError].
func IsJobError(err error) bool {
	if err == nil {
		return false
	}
	var je *JobError
	return errors.As(err, &je)
}

// JobOf extracts the [JobInfo] from the first [*JobError] in err's chain.
// Returns false if no JobError is found.
func JobOf(err error) (JobInfo, bool) {
	if err == nil {
		return JobInfo{}, false
	}

	var je *JobError
	if errors.As(err, &je) {
		return je.Job, true
	}
	return JobInfo{}, false
}

// CauseOf unwraps the first [*JobError] in err's chain and returns its
// underlying cause. If err is not a JobError, it is returned as-is.
// Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var je *JobError
	if errors.As(err, &je) {
		return je.Err
	}

	return err
}

// AllJobErrors recursively collects every [*JobError] from err's chain,
// including errors wrapped via [errors.Join]. Returns nil if none are found.
func AllJobErrors(err error) []*JobError {
	if err == nil {
		return nil
	}

	var out []*JobError
	collectJobErrors(err, &out)
	return out
}

func collectJobErrors(err error, out *[]*JobError) {
	switch e := err.(type) {
	case *JobError:
		*out = append(*out, e)

	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			collectJobErrors(sub, out)
		}

	case interface{ Unwrap() error }:
		collectJobErrors(e.Unwrap(), out)
	}
}
