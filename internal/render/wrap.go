package render

import "strings"

// Wrap splits a line into segments no longer than width, packing
// whitespace-delimited words greedily. A single word longer than width is
// hard-split exactly at the width boundary. Rejoining the segments with
// single spaces loses no characters.
func Wrap(line string, width int) []string {
	if width <= 0 || len([]rune(line)) <= width {
		return []string{line}
	}

	var out []string
	var current []rune
	for _, word := range strings.Fields(line) {
		runes := []rune(word)

		// Oversized words are split at the boundary, flushing whatever
		// is pending first.
		for len(runes) > width {
			if len(current) > 0 {
				out = append(out, string(current))
				current = nil
			}
			out = append(out, string(runes[:width]))
			runes = runes[width:]
		}

		switch {
		case len(current) == 0:
			current = runes
		case len(current)+1+len(runes) <= width:
			current = append(current, ' ')
			current = append(current, runes...)
		default:
			out = append(out, string(current))
			current = runes
		}
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}
