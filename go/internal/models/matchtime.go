package models

import "fmt"

// PeriodLength is the default length of one period in seconds.
const PeriodLength = 1200

// EncodeMatchTime maps a (period, seconds remaining) pair to the timestamp
// stored on events, using the default period length.
func EncodeMatchTime(period, remaining int) int {
	return EncodeMatchTimeFor(PeriodLength, period, remaining)
}

// EncodeMatchTimeFor is EncodeMatchTime for an arbitrary period length.
// Period 1 yields length+remaining, period 2 yields the seconds already played
// in the second half. Remaining is clamped to [0, length] first.
func EncodeMatchTimeFor(length, period, remaining int) int {
	remaining = max(0, min(remaining, length))
	if period == 1 {
		return length + remaining
	}
	return length - remaining
}

// ElapsedSeconds returns how many seconds of match play have passed in total.
func ElapsedSeconds(length, period, remaining int) int {
	remaining = max(0, min(remaining, length))
	played := length - remaining
	if period == 2 {
		played += length
	}
	return played
}

// FormatClock renders remaining seconds as mm:ss.
func FormatClock(remaining int) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)
}
