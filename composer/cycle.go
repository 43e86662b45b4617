package composer

import "time"

// FormatCycle renders an ECOS cycle token as a Korean date.
//
//	"20240115" -> "2024년01월15일"
//	"202401"   -> "2024년01월"
//	"2024"     -> "2024년"
//
// Tokens of any other length, and 8 or 6 character tokens that are not dates (quarters like "2023Q3"),
// are returned unchanged.
func FormatCycle(token string) string {
	switch len(token) {
	case 8:
		if t, err := time.Parse("20060102", token); err == nil {
			return t.Format("2006년01월02일")
		}
	case 6:
		if t, err := time.Parse("200601", token); err == nil {
			return t.Format("2006년01월")
		}
	case 4:
		return token + "년"
	}
	return token
}
