package quotes

import "fmt"

// TimeoutError reports a quote API request that did not complete in time.
type TimeoutError struct {
	Symbol string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("quote request for %s timed out", e.Symbol)
}

// NotFoundError reports an unknown symbol.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("symbol %s not found", e.Symbol)
}

// MalformedError reports an unparsable quote API response.
type MalformedError struct {
	Symbol string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed quote response for %s: %s", e.Symbol, e.Reason)
}
