package syncer

import "time"

// Window is one bounded [Since, Before) fetch span sized to the remote API's
// per-request limits.
type Window struct {
	Since  time.Time
	Before time.Time
}

// Windows splits [start, end] into ordered, contiguous, non-overlapping spans
// of maxSpanDays days. The final span absorbs any partial remainder instead
// of being re-split, so it may exceed maxSpanDays. start == end yields a
// single zero-length window.
func Windows(start, end time.Time, maxSpanDays int) []Window {
	span := time.Duration(maxSpanDays) * 24 * time.Hour

	var out []Window
	cur := start
	for end.Sub(cur) >= 2*span {
		out = append(out, Window{Since: cur, Before: cur.Add(span)})
		cur = cur.Add(span)
	}
	return append(out, Window{Since: cur, Before: end})
}
