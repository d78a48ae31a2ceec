package sqlgraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type vocabularyTable struct {
	name   string
	insert string
	lookup string
}

// Rows are shared by many resources. The unique column plus DO NOTHING lets
// two writers race on the same new term, the loser reads the winner's row.
var stemVocabulary = vocabularyTable{
	name:   "stem",
	insert: `INSERT INTO stems (id, stem) VALUES (?, ?) ON CONFLICT (stem) DO NOTHING`,
	lookup: `SELECT id FROM stems WHERE stem = ?`,
}

var entityVocabulary = vocabularyTable{
	name:   "entity",
	insert: `INSERT INTO entities (id, entity) VALUES (?, ?) ON CONFLICT (entity) DO NOTHING`,
	lookup: `SELECT id FROM entities WHERE entity = ?`,
}

// vocabulary resolves terms to row ids, caching the ones already seen by the
// current transaction.
type vocabulary struct {
	table vocabularyTable
	ids   map[string]uuid.UUID
}

func newVocabulary(table vocabularyTable) *vocabulary {
	return &vocabulary{table: table, ids: make(map[string]uuid.UUID)}
}

func (v *vocabulary) getOrCreate(ctx context.Context, tx *sqlx.Tx, term string) (uuid.UUID, error) {
	if id, ok := v.ids[term]; ok {
		return id, nil
	}

	id, err := newID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("get or create %s: %w", v.table.name, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(v.table.insert), id, term); err != nil {
		return uuid.Nil, fmt.Errorf("get or create %s %q: %w", v.table.name, term, err)
	}
	if err := tx.QueryRowxContext(ctx, tx.Rebind(v.table.lookup), term).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("get or create %s %q: %w", v.table.name, term, err)
	}

	v.ids[term] = id
	return id, nil
}
