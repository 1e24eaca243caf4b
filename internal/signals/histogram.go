package signals

import "time"

// Histogram buckets items into a normalized distribution of the given size.
// The result always sums to 1: an empty input falls back to the uniform
// distribution so downstream similarity math never divides by zero.
func Histogram(buckets int, indices []int) []float64 {
	out := make([]float64, buckets)
	if buckets == 0 {
		return out
	}
	if len(indices) == 0 {
		uniform := 1.0 / float64(buckets)
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	n := 0
	for _, idx := range indices {
		if idx < 0 || idx >= buckets {
			continue
		}
		out[idx]++
		n++
	}
	if n == 0 {
		uniform := 1.0 / float64(buckets)
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] /= float64(n)
	}
	return out
}

// HourOfDay and DayOfWeek are the two bucket functions used for behavioral
// temporal profiles.
func HourOfDay(t time.Time) int { return t.Hour() }

func DayOfWeek(t time.Time) int { return int(t.Weekday()) }

// SeasonOf maps a timestamp to a northern-hemisphere season label.
func SeasonOf(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}
