package repos

import (
	"slices"
	"sort"
	"time"
)

// candidate is a listed repository with its push time parsed.
type candidate struct {
	repo   apiRepo
	pushed time.Time
}

// selectCandidates drops forks and excluded names, orders the rest by push
// time (newest first, unparsable last) and keeps at most limit of them.
func selectCandidates(listed []apiRepo, excluded []string, limit int) []candidate {
	var cands []candidate
	for _, r := range listed {
		if r.Fork || slices.Contains(excluded, r.Name) {
			continue
		}
		pushed, _ := time.Parse(time.RFC3339, r.PushedAt)
		cands = append(cands, candidate{repo: r, pushed: pushed})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].pushed.After(cands[j].pushed)
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}
