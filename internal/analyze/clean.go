package analyze

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var numberSuffixRE = regexp.MustCompile(`^(.*)\(\d+\)$`)

// CleanDestinations tries to collapse the destinations of files sharing a
// fingerprint into one, e.g. [a.jpg a(1).jpg a(2).jpg] -> [a.jpg].
// It returns the input and false when the destinations have different
// extensions or do not share a common base.
func CleanDestinations(dests []string) ([]string, bool) {
	if len(dests) == 0 {
		return dests, false
	}
	ext := filepath.Ext(dests[0])
	for _, d := range dests[1:] {
		if filepath.Ext(d) != ext {
			return dests, false
		}
	}

	bases := make([]string, len(dests))
	for i, d := range dests {
		bases[i] = strings.TrimSuffix(d, ext)
	}
	sort.SliceStable(bases, func(i, j int) bool { return len(bases[i]) < len(bases[j]) })

	base := bases[0]
	if len(bases) > 1 && len(bases[1]) == len(base) {
		// several shortest names, e.g. a(1) and a(2)
		if m := numberSuffixRE.FindStringSubmatch(base); m != nil {
			base = m[1]
		}
	}
	for _, d := range dests {
		if !strings.HasPrefix(d, base) {
			return dests, false
		}
	}
	return []string{base + ext}, true
}
