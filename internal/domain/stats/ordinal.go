package stats

import "strconv"

// Ordinal returns the English ordinal string for n: 1st, 2nd, 3rd, 4th,
// 11th, 21st, and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
		// teens always take "th"
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
