// Package datewindow generates the month-sized date windows used to page
// through the Zoom recording listing API
package datewindow

import (
	"time"
)

// Window is a closed date interval, both ends inclusive
type Window struct {
	Start time.Time
	End   time.Time
}

// From returns the window start formatted for the listing API
func (w Window) From() string {
	return w.Start.Format("2006-01-02")
}

// To returns the window end formatted for the listing API
func (w Window) To() string {
	return w.End.Format("2006-01-02")
}

// bufferDays is added past today for the current month so recordings made
// today are not missed due to timezone or API date interpretation
const bufferDays = 7

// Windows returns one window per calendar month covering the monthsBack
// months before the current month, the current month, and the following
// month, ordered oldest first.
//
// Past months get one extra day past their natural end in case the API
// treats the range as half-open. The current month (and any month whose
// natural end lands in the future) ends at today plus a seven day buffer.
func Windows(today time.Time, monthsBack int) []Window {
	today = truncateToDate(today)
	currentMonthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	windows := make([]Window, 0, monthsBack+2)

	// Oldest month first, ending with the current month
	for i := 0; i <= monthsBack; i++ {
		monthStart := currentMonthStart.AddDate(0, i-monthsBack, 0)
		monthEnd := naturalMonthEnd(monthStart)

		switch {
		case monthStart.Equal(currentMonthStart):
			// Current month: extend past today to catch fresh recordings
			monthEnd = today.AddDate(0, 0, bufferDays)
		case monthEnd.After(today):
			// Shouldn't happen for past months, but clamp the same way
			monthEnd = today.AddDate(0, 0, bufferDays)
		default:
			// Fully past month: one day past the natural end
			monthEnd = monthEnd.AddDate(0, 0, 1)
		}

		windows = append(windows, Window{Start: monthStart, End: monthEnd})
	}

	// Trailing next-month window for recordings dated slightly in the future
	nextMonthStart := currentMonthStart.AddDate(0, 1, 0)
	windows = append(windows, Window{
		Start: nextMonthStart,
		End:   naturalMonthEnd(nextMonthStart),
	})

	return windows
}

// naturalMonthEnd returns the last calendar day of the month containing start.
// start must be the first day of its month.
func naturalMonthEnd(start time.Time) time.Time {
	if start.Month() == time.December {
		// December always has 31 days
		return time.Date(start.Year(), time.December, 31, 0, 0, 0, 0, start.Location())
	}
	return start.AddDate(0, 1, -1)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
