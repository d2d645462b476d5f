package utils

// Suggest returns the candidate closest to input, for "did you mean"
// hints. Only near misses qualify: the distance must be at most half the
// input length (minimum 2). Heavy abbreviations score badly on edit
// distance, so an input that is a subsequence of exactly one candidate
// suggests that candidate instead. Otherwise "" is returned.
func Suggest(input string, candidates []string) string {
	maxDistance := len(input) / 2
	if maxDistance < 2 {
		maxDistance = 2
	}

	best := ""
	bestDistance := maxDistance + 1
	for _, c := range candidates {
		if d := ComputeDistance(input, c); d < bestDistance {
			best = c
			bestDistance = d
		}
	}
	if best != "" || input == "" {
		return best
	}

	fuzzy := ""
	for _, c := range candidates {
		if FuzzyMatch(input, c) {
			if fuzzy != "" {
				return ""
			}
			fuzzy = c
		}
	}
	return fuzzy
}
