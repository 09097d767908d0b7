package orchestrator

import "errors"

// ErrStaleFetch marks a fetch whose context was cancelled because the
// view moved on (range change, unmount). Expected during rapid range
// switching; callers discard the result silently.
var ErrStaleFetch = errors.New("stale fetch discarded")

// ErrDataUnavailable is returned only when even the synthetic fallback
// could not produce a series. In practice the fallback always succeeds.
var ErrDataUnavailable = errors.New("no data source available")
