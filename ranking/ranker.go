package ranking

import (
	"context"

	"github.com/google/uuid"

	"github.com/odit-bit/expertfinder/socialgraph"
)

const (
	// resources aggregated into a user score
	userScoreDepth = 100

	bestUsers          = 10
	bestResults        = 10
	bestResultsPerUser = 2
)

// DistanceWeight decays a resource score with the distance of its edge.
func DistanceWeight(distance int) float64 {
	switch distance {
	case socialgraph.DistanceNear:
		return 0.75
	case socialgraph.DistanceFar:
		return 0.5
	default:
		return 1
	}
}

// UserRanker aggregates resource scores into user scores and picks the best
// results.
type UserRanker struct {
	graph socialgraph.Graph
}

func NewUserRanker(graph socialgraph.Graph) *UserRanker {
	return &UserRanker{graph: graph}
}

// Compute sums the best scored resources of the user weighted by distance
// and stores the score, replacing the previous one.
func (r *UserRanker) Compute(ctx context.Context, userID uuid.UUID) (float64, error) {
	top, err := r.graph.TopResourcesByScore(ctx, userID, userScoreDepth)
	if err != nil {
		return 0, err
	}

	var score float64
	for _, res := range top {
		d, err := r.graph.EdgeDistance(ctx, userID, res.ID)
		if err != nil {
			return 0, err
		}
		score += res.Score * DistanceWeight(d)
	}

	if err := r.graph.UpsertUserScore(ctx, userID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// BestResults walks the best users and collects up to two geotagged
// resources of each, skipping resources already collected. The size check
// runs once per user so the result can hold one more than bestResults.
func (r *UserRanker) BestResults(ctx context.Context) ([]socialgraph.Resource, error) {
	users, err := r.graph.TopUsersByScore(ctx, bestUsers)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var results []socialgraph.Resource
	for _, u := range users {
		if len(results) >= bestResults {
			continue
		}
		top, err := r.graph.TopLocatedResourcesByScore(ctx, u.ID, bestResultsPerUser)
		if err != nil {
			return nil, err
		}
		for _, res := range top {
			if _, dup := seen[res.ExternalID]; dup {
				continue
			}
			seen[res.ExternalID] = struct{}{}
			results = append(results, res.Resource)
		}
	}
	return results, nil
}
