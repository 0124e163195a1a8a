package scenario

import "unicode/utf16"

// TruncateUTF16 returns the longest prefix of s that fits in max UTF-16 code
// units. A surrogate pair that would straddle the boundary is dropped whole
// rather than split.
func TruncateUTF16(s string, max int) string {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > max {
			return s[:i]
		}
		units += n
	}
	return s
}

// TitleFor derives a record title from the scenario text.
func TitleFor(scenario string) string {
	return TruncateUTF16(scenario, MaxTitleLength)
}
