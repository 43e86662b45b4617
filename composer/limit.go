package composer

import (
	"strings"

	"github.com/keystat/keystat/pkg/errlvl"
)

// XMaxWeightedLength is the X post limit in weighted characters.
const XMaxWeightedLength = 280

// LengthFunc measures a post the way a platform does.
type LengthFunc func(string) int

// xLightRanges are the code point ranges X counts as one character, everything else counts as two.
// Taken from the twitter-text v3 configuration.
var xLightRanges = [][2]rune{
	{0, 4351},
	{8192, 8205},
	{8208, 8223},
	{8242, 8247},
}

// XWeightedLength counts s the way X does: Latin text weighs 1, Hangul, CJK and emoji weigh 2.
func XWeightedLength(s string) int {
	n := 0
	for _, r := range s {
		n += 2
		for _, rng := range xLightRanges {
			if r >= rng[0] && r <= rng[1] {
				n--
				break
			}
		}
	}
	return n
}

// RuneLength counts code points. Telegram limits messages this way.
func RuneLength(s string) int {
	return len([]rune(s))
}

// FitToLimit drops whole trailing lines from text until length(text) <= limit.
// It returns the text that fits and the number of dropped lines.
// Lines are never cut in half, so a first line that alone exceeds the limit yields ErrPostTooLong.
func FitToLimit(text string, limit int, length LengthFunc) (string, int, error) {
	if length(text) <= limit {
		return text, 0, nil
	}

	lines := strings.Split(text, "\n")
	for n := len(lines) - 1; n > 0; n-- {
		candidate := strings.Join(lines[:n], "\n")
		if length(candidate) <= limit {
			return candidate, len(lines) - n, nil
		}
	}

	return "", len(lines), newError(ErrPostTooLong, errlvl.ERROR, "FitToLimit").WithValue(lines[0])
}
