package usecase

import (
	"regexp"
	"sort"
	"strconv"
)

// citationMarker matches inline markers like [1] or [12]. The digit
// count is capped at two so bracketed years ([2024]) never count as
// citations.
var citationMarker = regexp.MustCompile(`\[(\d{1,2})\]`)

// ExtractCitations collects the 0-based context indices cited in an
// answer. Markers are 1-based in the text; out-of-range numbers are
// discarded. When nothing valid remains and at least one context item
// exists, the first item is assumed ([0]) so every answer keeps an
// attributed source. The function never fails.
func ExtractCitations(answer string, contextCount int) []int {
	if contextCount <= 0 {
		return nil
	}

	seen := make(map[int]struct{})
	for _, match := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n >= 1 && n <= contextCount {
			seen[n-1] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return []int{0}
	}

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}
