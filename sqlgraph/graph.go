package sqlgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/odit-bit/expertfinder/socialgraph"

	// drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

var _ socialgraph.Graph = (*Graph)(nil)

type Graph struct {
	db      *sqlx.DB
	dialect dialect
}

// New wraps an open connection and migrates the schema. The dialect is taken
// from the driver name the connection was opened with.
func New(db *sqlx.DB) (*Graph, error) {
	d, err := dialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	g := Graph{
		db:      db,
		dialect: d,
	}
	if err := g.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return &g, nil
}

// Connect opens a traced connection for driver (DriverPostgres or DriverSQLite).
//
// DSN format
// postgres: "host= dbname= password= user="
// sqlite:   a file path or ":memory:"
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := otelsqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer, and one shared database for ":memory:"
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Open is Connect followed by New.
func Open(driver, dsn string) (*Graph, error) {
	db, err := Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	g, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

func (g *Graph) Close() error {
	return g.db.Close()
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
}

// ==============

type dialect struct {
	name   string
	idType string
	real   string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres, "postgres":
		return dialect{name: DriverPostgres, idType: "UUID", real: "DOUBLE PRECISION"}, nil
	case DriverSQLite:
		return dialect{name: DriverSQLite, idType: "TEXT", real: "REAL"}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
}

// ==============

const createUserTableQuery = `
		CREATE TABLE IF NOT EXISTS users(
			id %[1]s PRIMARY KEY,
			network TEXT NOT NULL,
			external_id TEXT NOT NULL,
			handle TEXT NOT NULL,
			url TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT user_identity UNIQUE(network, external_id)
		);
`

const createResourceTableQuery = `
		CREATE TABLE IF NOT EXISTS resources(
			id %[1]s PRIMARY KEY,
			network TEXT NOT NULL,
			external_id TEXT NOT NULL,
			url TEXT NOT NULL,
			content TEXT NOT NULL,
			location_name TEXT,
			location_lat %[2]s,
			location_lon %[2]s,
			CONSTRAINT resource_identity UNIQUE(network, external_id)
		);
`

const createResourceUserTableQuery = `
		CREATE TABLE IF NOT EXISTS resource_users(
			id %[1]s PRIMARY KEY,
			user_id %[1]s NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			resource_id %[1]s NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			distance INTEGER NOT NULL CHECK (distance BETWEEN 0 AND 2),
			CONSTRAINT resource_user_distance UNIQUE(user_id, resource_id, distance)
		);
`

const createStemTableQuery = `
		CREATE TABLE IF NOT EXISTS stems(
			id %[1]s PRIMARY KEY,
			stem TEXT NOT NULL UNIQUE
		);
`

const createEntityTableQuery = `
		CREATE TABLE IF NOT EXISTS entities(
			id %[1]s PRIMARY KEY,
			entity TEXT NOT NULL UNIQUE
		);
`

const createResourceStemTableQuery = `
		CREATE TABLE IF NOT EXISTS resource_stems(
			id %[1]s PRIMARY KEY,
			stem_id %[1]s NOT NULL REFERENCES stems(id) ON DELETE CASCADE,
			resource_id %[1]s NOT NULL REFERENCES resources(id) ON DELETE CASCADE
		);
`

const createResourceEntityTableQuery = `
		CREATE TABLE IF NOT EXISTS resource_entities(
			id %[1]s PRIMARY KEY,
			entity_id %[1]s NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			resource_id %[1]s NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			rho %[2]s NOT NULL
		);
`

const createResourceScoreTableQuery = `
		CREATE TABLE IF NOT EXISTS resource_scores(
			resource_id %[1]s PRIMARY KEY REFERENCES resources(id) ON DELETE CASCADE,
			score %[2]s NOT NULL
		);
`

const createUserScoreTableQuery = `
		CREATE TABLE IF NOT EXISTS user_scores(
			user_id %[1]s PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			score %[2]s NOT NULL
		);
`

var createIndexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_network_completed ON users(network, completed);`,
	`CREATE INDEX IF NOT EXISTS idx_resource_users_user ON resource_users(user_id, resource_id);`,
	`CREATE INDEX IF NOT EXISTS idx_resource_stems_resource ON resource_stems(resource_id, stem_id);`,
	`CREATE INDEX IF NOT EXISTS idx_resource_stems_stem ON resource_stems(stem_id);`,
	`CREATE INDEX IF NOT EXISTS idx_resource_entities_resource ON resource_entities(resource_id, entity_id);`,
	`CREATE INDEX IF NOT EXISTS idx_resource_entities_entity ON resource_entities(entity_id);`,
	`CREATE INDEX IF NOT EXISTS idx_user_scores_score ON user_scores(score);`,
}

func (g *Graph) Migrate(ctx context.Context) error {
	tables := []string{
		createUserTableQuery,
		createResourceTableQuery,
		createResourceUserTableQuery,
		createStemTableQuery,
		createEntityTableQuery,
		createResourceStemTableQuery,
		createResourceEntityTableQuery,
		createResourceScoreTableQuery,
		createUserScoreTableQuery,
	}
	for _, q := range tables {
		if _, err := g.db.ExecContext(ctx, fmt.Sprintf(q, g.dialect.idType, g.dialect.real)); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, q := range createIndexQueries {
		if _, err := g.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
