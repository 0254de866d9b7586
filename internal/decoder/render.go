package decoder

import "strings"

// Render turns decoded rows into "label: description" lines. Rows that
// carry a forecast period render as "label (period): description".
func Render(tokens []DecodedToken) []string {
	lines := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lines = append(lines, t.String())
	}
	return lines
}

// Format joins the rendered rows with newlines.
func Format(tokens []DecodedToken) string {
	return strings.Join(Render(tokens), "\n")
}

func (t DecodedToken) String() string {
	if t.Period != "" {
		return t.Label + " (" + t.Period + "): " + t.Description
	}
	return t.Label + ": " + t.Description
}

// CountByCategory tallies rows per category.
func CountByCategory(tokens []DecodedToken) map[Category]int {
	counts := make(map[Category]int)
	for _, t := range tokens {
		counts[t.Category]++
	}
	return counts
}
