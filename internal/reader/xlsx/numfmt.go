package xlsx

import "strings"

// Built-in number format IDs that render as dates and/or times. The ranges
// come from ECMA-376 part 1 §18.8.30: 14-22 are date/time, 27-36 and 50-58
// are locale calendar dates, 45-47 are durations/times.
var builtinDateNumFmts = map[int]bool{}

func init() {
	for _, r := range [][2]int{{14, 22}, {27, 36}, {45, 47}, {50, 58}} {
		for id := r[0]; id <= r[1]; id++ {
			builtinDateNumFmts[id] = true
		}
	}
}

// isDateNumFmt reports whether a cell style's number format renders the
// stored value as a date or time. Custom format codes win over the built-in
// ID when present.
func isDateNumFmt(numFmtID int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateFormatCode(*custom)
	}
	return builtinDateNumFmts[numFmtID]
}

// isDateFormatCode scans a custom number format code for date/time tokens
// (y, m, d, h, s, or AM/PM markers). Literal text in double quotes, color
// and condition blocks in square brackets, and backslash-escaped characters
// are skipped, so formats like "0.00\"m\"" are not mistaken for dates.
func isDateFormatCode(code string) bool {
	inQuote := false
	inBracket := false
	escaped := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case inQuote:
			if c == '"' {
				inQuote = false
			}
		case inBracket:
			if c == ']' {
				inBracket = false
			}
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == ';':
			// Only the positive section decides; later sections style
			// negatives/zeros/text and routinely contain literal text.
			return false
		default:
			switch c {
			case 'y', 'Y', 'd', 'D', 'h', 'H', 's', 'S', 'm', 'M':
				return true
			case 'a', 'A':
				// AM/PM and A/P markers.
				rest := strings.ToUpper(code[i:])
				if strings.HasPrefix(rest, "AM/PM") || strings.HasPrefix(rest, "A/P") {
					return true
				}
			}
		}
	}
	return false
}
