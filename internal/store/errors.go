package store

import (
	"fmt"
	"time"
)

// QueryTimeoutError reports a primary-store query that exceeded its
// explicit timeout. Distinct from an empty result: a timeout on a
// windowed symbol query is a strong signal the (symbol, ts) index is
// missing, so the predicate is carried for operators.
type QueryTimeoutError struct {
	Symbols []string
	From    time.Time
	To      time.Time
	Limit   int
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("store query timed out for %v in [%s, %s] limit %d (missing index on (symbol, ts)?)",
		e.Symbols, e.From.Format(time.RFC3339), e.To.Format(time.RFC3339), e.Limit)
}
