package catalog

import (
	"context"

	"github.com/Skufu/ddxengine/internal/inference"
)

// Store serves a catalog from memory. It is read-only after construction.
type Store struct {
	links       []inference.Link
	constraints []inference.RuleConstraint
	syndromes   []inference.Syndrome
}

func NewStore(c *Catalog) *Store {
	syndromes := make([]inference.Syndrome, len(c.Syndromes))
	for i, s := range c.Syndromes {
		syndromes[i] = inference.Syndrome{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	return &Store{
		links:       c.InferenceLinks(),
		constraints: c.InferenceConstraints(),
		syndromes:   syndromes,
	}
}

func (s *Store) FetchLinks(ctx context.Context, symptomIDs []string) ([]inference.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := inference.NewIDSet(symptomIDs)
	var out []inference.Link
	for _, l := range s.links {
		if want.Has(l.SymptomID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) FetchConstraints(ctx context.Context, syndromeIDs []string) ([]inference.RuleConstraint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := inference.NewIDSet(syndromeIDs)
	var out []inference.RuleConstraint
	for _, rc := range s.constraints {
		if want.Has(rc.SyndromeID) {
			out = append(out, rc)
		}
	}
	return out, nil
}

func (s *Store) FetchSyndromes(ctx context.Context, syndromeIDs []string) ([]inference.Syndrome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := inference.NewIDSet(syndromeIDs)
	var out []inference.Syndrome
	for _, syn := range s.syndromes {
		if want.Has(syn.ID) {
			out = append(out, syn)
		}
	}
	return out, nil
}
