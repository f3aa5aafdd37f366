package inference

// Survivors returns the candidates whose syndrome was not dropped, keeping rank order.
func Survivors(candidates []Candidate, dropped map[string]bool) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if dropped[c.SyndromeID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Enrich attaches syndrome metadata to each candidate. Candidates without
// metadata get a placeholder named UnknownSyndromeName.
func Enrich(candidates []Candidate, syndromes []Syndrome) []Candidate {
	byID := make(map[string]Syndrome, len(syndromes))
	for _, s := range syndromes {
		byID[s.ID] = s
	}

	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		s, ok := byID[c.SyndromeID]
		if !ok {
			s = Syndrome{ID: c.SyndromeID, Name: UnknownSyndromeName}
		}
		c.Syndrome = &s
		out[i] = c
	}
	return out
}
