package sqlgraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const stemOccurrencesQuery = `
	SELECT COUNT(*)
	FROM resource_stems rs
	JOIN stems s ON s.id = rs.stem_id
	WHERE rs.resource_id = ? AND s.stem = ?
`

const stemGlobalQuery = `
	SELECT COUNT(DISTINCT rs.resource_id)
	FROM resource_stems rs
	JOIN stems s ON s.id = rs.stem_id
	WHERE s.stem = ?
`

const entityOccurrencesQuery = `
	SELECT COUNT(*)
	FROM resource_entities re
	JOIN entities e ON e.id = re.entity_id
	WHERE re.resource_id = ? AND e.entity = ?
`

const entityGlobalQuery = `
	SELECT COUNT(DISTINCT re.resource_id)
	FROM resource_entities re
	JOIN entities e ON e.id = re.entity_id
	WHERE e.entity = ?
`

const entityRhoQuery = `
	SELECT COALESCE(AVG(re.rho), 0)
	FROM resource_entities re
	JOIN entities e ON e.id = re.entity_id
	WHERE re.resource_id = ? AND e.entity = ?
`

// CountStemOccurrences implements socialgraph.Graph.
func (g *Graph) CountStemOccurrences(ctx context.Context, resourceID uuid.UUID, stem string) (int, error) {
	return g.count(ctx, "stem occurrences", stemOccurrencesQuery, resourceID, stem)
}

// CountStemGlobal implements socialgraph.Graph.
func (g *Graph) CountStemGlobal(ctx context.Context, stem string) (int, error) {
	return g.count(ctx, "stem global", stemGlobalQuery, stem)
}

// CountEntityOccurrences implements socialgraph.Graph.
func (g *Graph) CountEntityOccurrences(ctx context.Context, resourceID uuid.UUID, entity string) (int, error) {
	return g.count(ctx, "entity occurrences", entityOccurrencesQuery, resourceID, entity)
}

// CountEntityGlobal implements socialgraph.Graph.
func (g *Graph) CountEntityGlobal(ctx context.Context, entity string) (int, error) {
	return g.count(ctx, "entity global", entityGlobalQuery, entity)
}

// AverageEntityRho implements socialgraph.Graph.
func (g *Graph) AverageEntityRho(ctx context.Context, resourceID uuid.UUID, entity string) (float64, error) {
	var rho float64
	if err := g.db.GetContext(ctx, &rho, g.db.Rebind(entityRhoQuery), resourceID, entity); err != nil {
		return 0, fmt.Errorf("average entity rho: %w", err)
	}
	return rho, nil
}

func (g *Graph) count(ctx context.Context, what, query string, args ...interface{}) (int, error) {
	var n int
	if err := g.db.GetContext(ctx, &n, g.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", what, err)
	}
	return n, nil
}
