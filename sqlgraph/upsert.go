package sqlgraph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// newID returns a time ordered identifier, ordering rows by id follows the
// insertion order.
func newID() (uuid.UUID, error) {
	return uuid.NewV7()
}

const userInsertQuery = `
	INSERT INTO users (id, network, external_id, handle, url, completed)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (network, external_id) DO NOTHING
`

// UpsertUser implements socialgraph.Graph.
func (g *Graph) UpsertUser(ctx context.Context, user *socialgraph.User) (bool, error) {
	id, err := newID()
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	res, err := g.db.ExecContext(ctx, g.db.Rebind(userInsertQuery),
		id, user.Network, user.ExternalID, user.Handle, user.URL, user.Completed)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	if n == 1 {
		user.ID = id
		return true, nil
	}

	stored, err := g.lookupUser(ctx, user.Network, user.ExternalID)
	if err != nil {
		return false, err
	}
	*user = *stored
	return false, nil
}

const userCompleteQuery = `
	UPDATE users SET completed = ? WHERE id = ?
`

// MarkCompleted implements socialgraph.Graph.
func (g *Graph) MarkCompleted(ctx context.Context, userID uuid.UUID) error {
	res, err := g.db.ExecContext(ctx, g.db.Rebind(userCompleteQuery), true, userID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if n == 0 {
		return socialgraph.ErrNotFound
	}
	return nil
}

const resourceInsertQuery = `
	INSERT INTO resources (id, network, external_id, url, content, location_name, location_lat, location_lon)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (network, external_id) DO NOTHING
`

const resourceStemInsertQuery = `
	INSERT INTO resource_stems (id, stem_id, resource_id) VALUES (?, ?, ?)
`

const resourceEntityInsertQuery = `
	INSERT INTO resource_entities (id, entity_id, resource_id, rho) VALUES (?, ?, ?, ?)
`

// InsertResource implements socialgraph.Graph. The resource and its
// annotation rows are written in one transaction.
func (g *Graph) InsertResource(ctx context.Context, res *socialgraph.Resource, ann socialgraph.Annotation) (created bool, err error) {
	id, err := newID()
	if err != nil {
		return false, fmt.Errorf("insert resource: %w", err)
	}

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("insert resource: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		name     sql.NullString
		lat, lon sql.NullFloat64
	)
	if loc := res.Location; loc != nil {
		name = sql.NullString{String: loc.Name, Valid: true}
		lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: loc.Lon, Valid: true}
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(resourceInsertQuery),
		id, res.Network, res.ExternalID, res.URL, res.Text, name, lat, lon)
	if err != nil {
		return false, fmt.Errorf("insert resource: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert resource: %w", err)
	}
	if n == 0 {
		// inserted concurrently, keep the stored row and its annotation
		var stored *socialgraph.Resource
		stored, err = g.lookupResource(ctx, tx, res.Network, res.ExternalID)
		if err != nil {
			return false, err
		}
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("insert resource: %w", err)
		}
		*res = *stored
		return false, nil
	}

	if err = g.linkStems(ctx, tx, id, ann.Stems); err != nil {
		return false, err
	}
	if err = g.linkEntities(ctx, tx, id, ann.Entities); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("insert resource: %w", err)
	}
	res.ID = id
	return true, nil
}

func (g *Graph) linkStems(ctx context.Context, tx *sqlx.Tx, resourceID uuid.UUID, stems []string) error {
	vocab := newVocabulary(stemVocabulary)
	for _, stem := range stems {
		stemID, err := vocab.getOrCreate(ctx, tx, stem)
		if err != nil {
			return err
		}
		linkID, err := newID()
		if err != nil {
			return fmt.Errorf("link stem: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(resourceStemInsertQuery), linkID, stemID, resourceID); err != nil {
			return fmt.Errorf("link stem %q: %w", stem, err)
		}
	}
	return nil
}

func (g *Graph) linkEntities(ctx context.Context, tx *sqlx.Tx, resourceID uuid.UUID, entities []socialgraph.WeightedEntity) error {
	vocab := newVocabulary(entityVocabulary)
	for _, entity := range entities {
		entityID, err := vocab.getOrCreate(ctx, tx, entity.Name)
		if err != nil {
			return err
		}
		linkID, err := newID()
		if err != nil {
			return fmt.Errorf("link entity: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(resourceEntityInsertQuery), linkID, entityID, resourceID, entity.Rho); err != nil {
			return fmt.Errorf("link entity %q: %w", entity.Name, err)
		}
	}
	return nil
}

const edgeUpsertQuery = `
	INSERT INTO resource_users (id, user_id, resource_id, distance)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, resource_id, distance) DO UPDATE SET distance = excluded.distance
	RETURNING id
`

// UpsertEdge implements socialgraph.Graph.
func (g *Graph) UpsertEdge(ctx context.Context, edge *socialgraph.Edge) error {
	if edge.Distance < socialgraph.DistanceOwn || edge.Distance > socialgraph.DistanceFar {
		return fmt.Errorf("edge upsert: invalid distance %d", edge.Distance)
	}
	id, err := newID()
	if err != nil {
		return fmt.Errorf("edge upsert: %w", err)
	}

	err = g.db.QueryRowxContext(ctx, g.db.Rebind(edgeUpsertQuery), id, edge.UserID, edge.ResourceID, edge.Distance).Scan(&edge.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return socialgraph.ErrUnknownEdgeEndpoints
		}
		return fmt.Errorf("edge upsert: %w", err)
	}
	return nil
}

const resourceScoreUpsertQuery = `
	INSERT INTO resource_scores (resource_id, score) VALUES (?, ?)
	ON CONFLICT (resource_id) DO UPDATE SET score = excluded.score
`

// UpsertResourceScore implements socialgraph.Graph.
func (g *Graph) UpsertResourceScore(ctx context.Context, resourceID uuid.UUID, score float64) error {
	if _, err := g.db.ExecContext(ctx, g.db.Rebind(resourceScoreUpsertQuery), resourceID, score); err != nil {
		if isForeignKeyViolation(err) {
			return socialgraph.ErrNotFound
		}
		return fmt.Errorf("upsert resource score: %w", err)
	}
	return nil
}

const userScoreUpsertQuery = `
	INSERT INTO user_scores (user_id, score) VALUES (?, ?)
	ON CONFLICT (user_id) DO UPDATE SET score = excluded.score
`

// UpsertUserScore implements socialgraph.Graph.
func (g *Graph) UpsertUserScore(ctx context.Context, userID uuid.UUID, score float64) error {
	if _, err := g.db.ExecContext(ctx, g.db.Rebind(userScoreUpsertQuery), userID, score); err != nil {
		if isForeignKeyViolation(err) {
			return socialgraph.ErrNotFound
		}
		return fmt.Errorf("upsert user score: %w", err)
	}
	return nil
}
