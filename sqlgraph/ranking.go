package sqlgraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// a resource linked to the same user at several distances is still returned once
const topResourcesQuery = `
	SELECT r.id, r.network, r.external_id, r.url, r.content, r.location_name, r.location_lat, r.location_lon, s.score
	FROM resources r
	JOIN resource_scores s ON s.resource_id = r.id
	WHERE r.id IN (SELECT ru.resource_id FROM resource_users ru WHERE ru.user_id = ?)
	%s
	ORDER BY s.score DESC, r.id
	LIMIT ?
`

const locatedFilter = `AND r.location_name IS NOT NULL AND TRIM(r.location_name) <> ''`

type scoredResourceRow struct {
	resourceRow
	Score float64 `db:"score"`
}

// TopResourcesByScore implements socialgraph.Graph.
func (g *Graph) TopResourcesByScore(ctx context.Context, userID uuid.UUID, limit int) ([]socialgraph.ScoredResource, error) {
	return g.topResources(ctx, fmt.Sprintf(topResourcesQuery, ""), userID, limit)
}

// TopLocatedResourcesByScore implements socialgraph.Graph.
func (g *Graph) TopLocatedResourcesByScore(ctx context.Context, userID uuid.UUID, limit int) ([]socialgraph.ScoredResource, error) {
	return g.topResources(ctx, fmt.Sprintf(topResourcesQuery, locatedFilter), userID, limit)
}

func (g *Graph) topResources(ctx context.Context, query string, userID uuid.UUID, limit int) ([]socialgraph.ScoredResource, error) {
	var rows []scoredResourceRow
	if err := g.db.SelectContext(ctx, &rows, g.db.Rebind(query), userID, limit); err != nil {
		return nil, fmt.Errorf("top resources: %w", err)
	}

	out := make([]socialgraph.ScoredResource, 0, len(rows))
	for i := range rows {
		out = append(out, socialgraph.ScoredResource{
			Resource: *rows[i].resource(),
			Score:    rows[i].Score,
		})
	}
	return out, nil
}

const topUsersQuery = `
	SELECT u.id, u.network, u.external_id, u.handle, u.url, u.completed, s.score
	FROM users u
	JOIN user_scores s ON s.user_id = u.id
	ORDER BY s.score DESC, u.id
	LIMIT ?
`

// TopUsersByScore implements socialgraph.Graph.
func (g *Graph) TopUsersByScore(ctx context.Context, limit int) ([]socialgraph.ScoredUser, error) {
	var users []socialgraph.ScoredUser
	if err := g.db.SelectContext(ctx, &users, g.db.Rebind(topUsersQuery), limit); err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	return users, nil
}

const statsQuery = `
	SELECT
		(SELECT COUNT(*) FROM users) AS users,
		(SELECT COUNT(*) FROM users WHERE completed = ?) AS completed_users,
		(SELECT COUNT(*) FROM resources) AS resources
`

// Stats implements socialgraph.Graph.
func (g *Graph) Stats(ctx context.Context) (socialgraph.Stats, error) {
	var stats socialgraph.Stats
	if err := g.db.GetContext(ctx, &stats, g.db.Rebind(statsQuery), true); err != nil {
		return socialgraph.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
