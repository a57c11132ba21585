package engine

import "sort"

// levenshteinDistance calculates the edit distance between two strings.
// Grounded on xyproto-vibe67/utils.go's levenshteinDistance, unchanged.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				min(matrix[i][j-1]+1,
					matrix[i-1][j-1]+cost))
		}
	}

	return matrix[len(s1)][len(s2)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SuggestCommand returns the candidate closest to name by edit distance,
// for a CLI that wants to offer "did you mean" on an unrecognized
// subcommand, or "" if nothing is within the threshold. Adapted from
// xyproto-vibe67/utils.go's findSimilarIdentifiers (a parser-level
// "undeclared variable" suggestion helper this port has no use for, since
// spec's scope stops at the word-level IR and never names source
// identifiers) to budec's subcommand dispatch instead.
func SuggestCommand(name string, candidates []string) string {
	const threshold = 3

	type scored struct {
		name     string
		distance int
	}
	var suggestions []scored
	for _, c := range candidates {
		if d := levenshteinDistance(name, c); d <= threshold && d > 0 {
			suggestions = append(suggestions, scored{c, d})
		}
	}
	if len(suggestions) == 0 {
		return ""
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].distance == suggestions[j].distance {
			return suggestions[i].name < suggestions[j].name
		}
		return suggestions[i].distance < suggestions[j].distance
	})
	return suggestions[0].name
}
