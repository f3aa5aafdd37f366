package inference

import "sort"

// Tally is the aggregated score and evidence of one syndrome.
type Tally struct {
	Score    float64
	Evidence []Link
}

// Scores maps syndrome id to its tally.
type Scores map[string]*Tally

// Score aggregates signed link weights per syndrome. Evidence keeps the
// order the links were fetched in. Syndromes whose total is zero or
// negative are kept.
func Score(links []Link) Scores {
	scores := make(Scores)
	for _, l := range links {
		t, ok := scores[l.SyndromeID]
		if !ok {
			t = &Tally{}
			scores[l.SyndromeID] = t
		}
		t.Score += l.Delta()
		t.Evidence = append(t.Evidence, l)
	}
	return scores
}

// Rank orders scored syndromes by score descending, breaking ties by
// syndrome id, and keeps at most MaxCandidates.
func Rank(scores Scores) []Candidate {
	candidates := make([]Candidate, 0, len(scores))
	for id, t := range scores {
		candidates = append(candidates, Candidate{
			SyndromeID: id,
			Score:      t.Score,
			Evidence:   t.Evidence,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SyndromeID < candidates[j].SyndromeID
	})

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates
}
