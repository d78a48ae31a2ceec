package sqlgraph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/odit-bit/expertfinder/socialgraph"
)

const lookupUserQuery = `
	SELECT id, network, external_id, handle, url, completed
	FROM users
	WHERE network = ? AND external_id = ?
`

func (g *Graph) lookupUser(ctx context.Context, network, externalID string) (*socialgraph.User, error) {
	var user socialgraph.User
	err := g.db.GetContext(ctx, &user, g.db.Rebind(lookupUserQuery), network, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, socialgraph.ErrNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

// resourceRow is the nullable shape of a resources row.
type resourceRow struct {
	ID           uuid.UUID       `db:"id"`
	Network      string          `db:"network"`
	ExternalID   string          `db:"external_id"`
	URL          string          `db:"url"`
	Content      string          `db:"content"`
	LocationName sql.NullString  `db:"location_name"`
	LocationLat  sql.NullFloat64 `db:"location_lat"`
	LocationLon  sql.NullFloat64 `db:"location_lon"`
}

func (r *resourceRow) resource() *socialgraph.Resource {
	res := socialgraph.Resource{
		ID:         r.ID,
		Network:    r.Network,
		ExternalID: r.ExternalID,
		URL:        r.URL,
		Text:       r.Content,
	}
	if r.LocationName.Valid {
		res.Location = &socialgraph.Location{
			Name: r.LocationName.String,
			Lat:  r.LocationLat.Float64,
			Lon:  r.LocationLon.Float64,
		}
	}
	return &res
}

const resourceColumns = `id, network, external_id, url, content, location_name, location_lat, location_lon`

const lookupResourceQuery = `
	SELECT ` + resourceColumns + `
	FROM resources
	WHERE network = ? AND external_id = ?
`

func (g *Graph) lookupResource(ctx context.Context, q sqlx.QueryerContext, network, externalID string) (*socialgraph.Resource, error) {
	var row resourceRow
	err := sqlx.GetContext(ctx, q, &row, g.db.Rebind(lookupResourceQuery), network, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, socialgraph.ErrNotFound
		}
		return nil, fmt.Errorf("lookup resource: %w", err)
	}
	return row.resource(), nil
}

// LookupResource implements socialgraph.Graph.
func (g *Graph) LookupResource(ctx context.Context, network, externalID string) (*socialgraph.Resource, error) {
	return g.lookupResource(ctx, g.db, network, externalID)
}

// CountUsers implements socialgraph.Graph.
func (g *Graph) CountUsers(ctx context.Context, network string) (int, error) {
	var n int
	err := g.db.GetContext(ctx, &n, g.db.Rebind(`SELECT COUNT(*) FROM users WHERE network = ?`), network)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

const uncompletedUserQuery = `
	SELECT id, network, external_id, handle, url, completed
	FROM users
	WHERE network = ? AND completed = ?
`

// FindUncompletedUser implements socialgraph.Graph. Users are tried in
// discovery order.
func (g *Graph) FindUncompletedUser(ctx context.Context, network string, exclude []uuid.UUID) (*socialgraph.User, error) {
	query := uncompletedUserQuery
	args := []interface{}{network, false}
	if len(exclude) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND id NOT IN (?)`, network, false, exclude)
		if err != nil {
			return nil, fmt.Errorf("find uncompleted user: %w", err)
		}
	}
	query += ` ORDER BY id LIMIT 1`

	var user socialgraph.User
	if err := g.db.GetContext(ctx, &user, g.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, socialgraph.ErrNotFound
		}
		return nil, fmt.Errorf("find uncompleted user: %w", err)
	}
	return &user, nil
}

const edgeDistanceQuery = `
	SELECT MIN(distance) FROM resource_users WHERE user_id = ? AND resource_id = ?
`

// EdgeDistance implements socialgraph.Graph.
func (g *Graph) EdgeDistance(ctx context.Context, userID, resourceID uuid.UUID) (int, error) {
	var d sql.NullInt64
	if err := g.db.GetContext(ctx, &d, g.db.Rebind(edgeDistanceQuery), userID, resourceID); err != nil {
		return 0, fmt.Errorf("edge distance: %w", err)
	}
	if !d.Valid {
		return 0, socialgraph.ErrNotFound
	}
	return int(d.Int64), nil
}
