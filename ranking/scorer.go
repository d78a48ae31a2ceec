package ranking

import (
	"context"

	"github.com/google/uuid"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// DefaultAlpha weights the stem component against the entity component.
const DefaultAlpha = 0.6

// Query is an analyzed query with the corpus rarity of each of its terms,
// shared by every resource scored against it.
type Query struct {
	Stems    []Term
	Entities []Term
}

// Term is a query stem or entity with its squared inverse resource frequency.
type Term struct {
	Value string
	IRF2  float64
}

// inverse resource frequency squared, 1 for terms no resource carries
func irf2(rf int) float64 {
	irf := 1.0
	if rf > 0 {
		irf = 1 / float64(rf)
	}
	return irf * irf
}

// ResourceScorer scores resources against a query from the stem and entity
// frequencies held by the graph.
type ResourceScorer struct {
	graph socialgraph.Graph
	alpha float64
}

// NewResourceScorer returns a scorer blending with alpha, see DefaultAlpha.
func NewResourceScorer(graph socialgraph.Graph, alpha float64) *ResourceScorer {
	return &ResourceScorer{graph: graph, alpha: alpha}
}

// Prepare resolves the global frequency of every query term. Repeated terms
// are kept and count once per occurrence.
func (s *ResourceScorer) Prepare(ctx context.Context, ann socialgraph.Annotation) (*Query, error) {
	var q Query
	for _, stem := range ann.Stems {
		rf, err := s.graph.CountStemGlobal(ctx, stem)
		if err != nil {
			return nil, err
		}
		q.Stems = append(q.Stems, Term{Value: stem, IRF2: irf2(rf)})
	}
	for _, entity := range ann.Entities {
		rf, err := s.graph.CountEntityGlobal(ctx, entity.Name)
		if err != nil {
			return nil, err
		}
		q.Entities = append(q.Entities, Term{Value: entity.Name, IRF2: irf2(rf)})
	}
	return &q, nil
}

// Compute scores the resource against q and stores the score, replacing the
// previous one.
func (s *ResourceScorer) Compute(ctx context.Context, resourceID uuid.UUID, q *Query) (float64, error) {
	score, err := s.Score(ctx, resourceID, q)
	if err != nil {
		return 0, err
	}
	if err := s.graph.UpsertResourceScore(ctx, resourceID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// Score is Compute without storing the result.
func (s *ResourceScorer) Score(ctx context.Context, resourceID uuid.UUID, q *Query) (float64, error) {
	var stemScore float64
	for _, t := range q.Stems {
		tf, err := s.graph.CountStemOccurrences(ctx, resourceID, t.Value)
		if err != nil {
			return 0, err
		}
		stemScore += float64(tf) * t.IRF2
	}

	var entityScore float64
	for _, t := range q.Entities {
		ef, err := s.graph.CountEntityOccurrences(ctx, resourceID, t.Value)
		if err != nil {
			return 0, err
		}
		if ef == 0 {
			continue
		}
		weight, err := s.graph.AverageEntityRho(ctx, resourceID, t.Value)
		if err != nil {
			return 0, err
		}
		if weight > 0 {
			weight++
		}
		entityScore += weight * float64(ef) * t.IRF2
	}

	return s.alpha*stemScore + (1-s.alpha)*entityScore, nil
}
