package sqlgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odit-bit/expertfinder/socialgraph"
)

func newSQLiteGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGraph_SQLite(t *testing.T) {
	runGraphTests(t, newSQLiteGraph)
}

// set PG_DSN, e.g. "host=localhost dbname=postgres password=test user=postgres"
func TestGraph_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	runGraphTests(t, func(t *testing.T) *Graph {
		g, err := Open(DriverPostgres, dsn)
		require.NoError(t, err)
		_, err = g.db.Exec(`TRUNCATE users, resources, stems, entities CASCADE`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = g.Close() })
		return g
	})
}

func runGraphTests(t *testing.T, newGraph func(t *testing.T) *Graph) {
	tests := map[string]func(t *testing.T, g *Graph){
		"upsert user":           testUpsertUser,
		"uncompleted users":     testFindUncompletedUser,
		"insert resource":       testInsertResource,
		"edges":                 testEdges,
		"frequencies":           testFrequencies,
		"top resources":         testTopResources,
		"top users":             testTopUsers,
		"iterators":             testIterators,
		"scores need endpoints": testScoreEndpoints,
	}
	for name, fn := range tests {
		fn := fn
		t.Run(name, func(t *testing.T) {
			fn(t, newGraph(t))
		})
	}
}

func mustUser(t *testing.T, g *Graph, externalID string) *socialgraph.User {
	t.Helper()
	u := &socialgraph.User{Network: "IG", ExternalID: externalID, Handle: "h" + externalID, URL: "https://instagram.com/h" + externalID}
	_, err := g.UpsertUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func mustResource(t *testing.T, g *Graph, externalID string, loc *socialgraph.Location, ann socialgraph.Annotation) *socialgraph.Resource {
	t.Helper()
	r := &socialgraph.Resource{Network: "IG", ExternalID: externalID, URL: "https://instagram.com/p/" + externalID, Text: "text " + externalID, Location: loc}
	_, err := g.InsertResource(context.Background(), r, ann)
	require.NoError(t, err)
	return r
}

func testUpsertUser(t *testing.T, g *Graph) {
	ctx := context.Background()

	u := &socialgraph.User{Network: "IG", ExternalID: "1", Handle: "alice", URL: "https://instagram.com/alice"}
	created, err := g.UpsertUser(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, u.ID)

	again := &socialgraph.User{Network: "IG", ExternalID: "1", Handle: "renamed"}
	created, err = g.UpsertUser(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "alice", again.Handle)

	n, err := g.CountUsers(ctx, "IG")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = g.CountUsers(ctx, "TW")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, g.MarkCompleted(ctx, uuid.New()), socialgraph.ErrNotFound)
}

func testFindUncompletedUser(t *testing.T, g *Graph) {
	ctx := context.Background()
	u1 := mustUser(t, g, "1")
	u2 := mustUser(t, g, "2")
	u3 := mustUser(t, g, "3")

	got, err := g.FindUncompletedUser(ctx, "IG", nil)
	require.NoError(t, err)
	assert.Equal(t, u1.ID, got.ID)

	got, err = g.FindUncompletedUser(ctx, "IG", []uuid.UUID{u1.ID, u2.ID})
	require.NoError(t, err)
	assert.Equal(t, u3.ID, got.ID)

	require.NoError(t, g.MarkCompleted(ctx, u3.ID))
	_, err = g.FindUncompletedUser(ctx, "IG", []uuid.UUID{u1.ID, u2.ID})
	assert.ErrorIs(t, err, socialgraph.ErrNotFound)

	_, err = g.FindUncompletedUser(ctx, "TW", nil)
	assert.ErrorIs(t, err, socialgraph.ErrNotFound)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, socialgraph.Stats{Users: 3, CompletedUsers: 1, Resources: 0}, stats)
}

func testInsertResource(t *testing.T, g *Graph) {
	ctx := context.Background()

	loc := &socialgraph.Location{Name: "Pisa", Lat: 43.72, Lon: 10.40}
	ann := socialgraph.Annotation{
		Stems:    []string{"tower", "lean", "tower"},
		Entities: []socialgraph.WeightedEntity{{Name: "Leaning_Tower_of_Pisa", Rho: 0.5}},
	}
	r := mustResource(t, g, "p1", loc, ann)
	assert.NotEqual(t, uuid.Nil, r.ID)

	got, err := g.LookupResource(ctx, "IG", "p1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	dup := &socialgraph.Resource{Network: "IG", ExternalID: "p1", Text: "other"}
	created, err := g.InsertResource(ctx, dup, socialgraph.Annotation{Stems: []string{"other"}})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r.ID, dup.ID)
	assert.Equal(t, "text p1", dup.Text)

	n, err := g.CountStemGlobal(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, n)

	plain := mustResource(t, g, "p2", nil, socialgraph.Annotation{})
	got, err = g.LookupResource(ctx, "IG", "p2")
	require.NoError(t, err)
	assert.Nil(t, got.Location)
	assert.Equal(t, plain.ID, got.ID)

	_, err = g.LookupResource(ctx, "IG", "missing")
	assert.ErrorIs(t, err, socialgraph.ErrNotFound)
}

func testEdges(t *testing.T, g *Graph) {
	ctx := context.Background()
	u := mustUser(t, g, "1")
	r := mustResource(t, g, "p1", nil, socialgraph.Annotation{})

	_, err := g.EdgeDistance(ctx, u.ID, r.ID)
	assert.ErrorIs(t, err, socialgraph.ErrNotFound)

	far := &socialgraph.Edge{UserID: u.ID, ResourceID: r.ID, Distance: socialgraph.DistanceFar}
	require.NoError(t, g.UpsertEdge(ctx, far))
	assert.NotEqual(t, uuid.Nil, far.ID)

	again := &socialgraph.Edge{UserID: u.ID, ResourceID: r.ID, Distance: socialgraph.DistanceFar}
	require.NoError(t, g.UpsertEdge(ctx, again))
	assert.Equal(t, far.ID, again.ID)

	require.NoError(t, g.UpsertEdge(ctx, &socialgraph.Edge{UserID: u.ID, ResourceID: r.ID, Distance: socialgraph.DistanceNear}))

	d, err := g.EdgeDistance(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, socialgraph.DistanceNear, d)

	err = g.UpsertEdge(ctx, &socialgraph.Edge{UserID: uuid.New(), ResourceID: r.ID, Distance: 0})
	assert.ErrorIs(t, err, socialgraph.ErrUnknownEdgeEndpoints)

	err = g.UpsertEdge(ctx, &socialgraph.Edge{UserID: u.ID, ResourceID: r.ID, Distance: 3})
	assert.Error(t, err)
}

func testFrequencies(t *testing.T, g *Graph) {
	ctx := context.Background()
	r1 := mustResource(t, g, "p1", nil, socialgraph.Annotation{
		Stems: []string{"pizza", "pizza", "napl"},
		Entities: []socialgraph.WeightedEntity{
			{Name: "Pizza", Rho: 0.4},
			{Name: "Pizza", Rho: 0.2},
		},
	})
	mustResource(t, g, "p2", nil, socialgraph.Annotation{
		Stems:    []string{"pizza"},
		Entities: []socialgraph.WeightedEntity{{Name: "Pizza", Rho: 0.9}},
	})

	tf, err := g.CountStemOccurrences(ctx, r1.ID, "pizza")
	require.NoError(t, err)
	assert.Equal(t, 2, tf)

	rf, err := g.CountStemGlobal(ctx, "pizza")
	require.NoError(t, err)
	assert.Equal(t, 2, rf)

	tf, err = g.CountEntityOccurrences(ctx, r1.ID, "Pizza")
	require.NoError(t, err)
	assert.Equal(t, 2, tf)

	rf, err = g.CountEntityGlobal(ctx, "Pizza")
	require.NoError(t, err)
	assert.Equal(t, 2, rf)

	rho, err := g.AverageEntityRho(ctx, r1.ID, "Pizza")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, rho, 1e-9)

	rho, err = g.AverageEntityRho(ctx, r1.ID, "Napoli")
	require.NoError(t, err)
	assert.Zero(t, rho)
}

func testTopResources(t *testing.T, g *Graph) {
	ctx := context.Background()
	u := mustUser(t, g, "1")
	other := mustUser(t, g, "2")

	located := mustResource(t, g, "p1", &socialgraph.Location{Name: "Roma"}, socialgraph.Annotation{})
	blank := mustResource(t, g, "p2", &socialgraph.Location{Name: "  "}, socialgraph.Annotation{})
	plain := mustResource(t, g, "p3", nil, socialgraph.Annotation{})
	foreign := mustResource(t, g, "p4", &socialgraph.Location{Name: "Milano"}, socialgraph.Annotation{})

	for _, r := range []*socialgraph.Resource{located, blank, plain} {
		require.NoError(t, g.UpsertEdge(ctx, &socialgraph.Edge{UserID: u.ID, ResourceID: r.ID, Distance: 0}))
	}
	// same resource at two distances is listed once
	require.NoError(t, g.UpsertEdge(ctx, &socialgraph.Edge{UserID: u.ID, ResourceID: located.ID, Distance: 2}))
	require.NoError(t, g.UpsertEdge(ctx, &socialgraph.Edge{UserID: other.ID, ResourceID: foreign.ID, Distance: 0}))

	require.NoError(t, g.UpsertResourceScore(ctx, located.ID, 1))
	require.NoError(t, g.UpsertResourceScore(ctx, blank.ID, 5))
	require.NoError(t, g.UpsertResourceScore(ctx, plain.ID, 3))
	require.NoError(t, g.UpsertResourceScore(ctx, foreign.ID, 9))
	// rewrite
	require.NoError(t, g.UpsertResourceScore(ctx, plain.ID, 4))

	top, err := g.TopResourcesByScore(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, blank.ID, top[0].ID)
	assert.Equal(t, plain.ID, top[1].ID)
	assert.Equal(t, 4.0, top[1].Score)
	assert.Equal(t, located.ID, top[2].ID)

	top, err = g.TopResourcesByScore(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	top, err = g.TopLocatedResourcesByScore(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, located.ID, top[0].ID)
	assert.Equal(t, "Roma", top[0].LocationName())
}

func testTopUsers(t *testing.T, g *Graph) {
	ctx := context.Background()
	u1 := mustUser(t, g, "1")
	u2 := mustUser(t, g, "2")
	mustUser(t, g, "3")

	require.NoError(t, g.UpsertUserScore(ctx, u1.ID, 0.5))
	require.NoError(t, g.UpsertUserScore(ctx, u2.ID, 2.5))

	top, err := g.TopUsersByScore(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, u2.ID, top[0].ID)
	assert.Equal(t, 2.5, top[0].Score)
	assert.Equal(t, "h2", top[0].Handle)
	assert.Equal(t, u1.ID, top[1].ID)
}

func testIterators(t *testing.T, g *Graph) {
	ctx := context.Background()
	defer func(size int) { iterationPageSize = size }(iterationPageSize)
	iterationPageSize = 2

	var want []uuid.UUID
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		want = append(want, mustUser(t, g, id).ID)
	}
	require.NoError(t, g.MarkCompleted(ctx, want[1]))
	require.NoError(t, g.MarkCompleted(ctx, want[3]))

	collect := func(it socialgraph.UserIterator) []uuid.UUID {
		var ids []uuid.UUID
		for it.Next() {
			ids = append(ids, it.User().ID)
		}
		require.NoError(t, it.Error())
		require.NoError(t, it.Close())
		return ids
	}

	it, err := g.Users(ctx, socialgraph.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, want, collect(it))

	it, err = g.Users(ctx, socialgraph.UserFilter{Network: "IG", CompletedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{want[1], want[3]}, collect(it))

	it, err = g.Users(ctx, socialgraph.UserFilter{Network: "TW"})
	require.NoError(t, err)
	assert.Empty(t, collect(it))

	r1 := mustResource(t, g, "p1", nil, socialgraph.Annotation{})
	r2 := mustResource(t, g, "p2", &socialgraph.Location{Name: "Roma"}, socialgraph.Annotation{})
	r3 := mustResource(t, g, "p3", nil, socialgraph.Annotation{})

	rit, err := g.Resources(ctx)
	require.NoError(t, err)
	var got []*socialgraph.Resource
	for rit.Next() {
		res := rit.Resource()
		// writes between two Next calls must not block
		require.NoError(t, g.UpsertResourceScore(ctx, res.ID, 1))
		got = append(got, res)
	}
	require.NoError(t, rit.Error())
	require.NoError(t, rit.Close())
	assert.Equal(t, []*socialgraph.Resource{r1, r2, r3}, got)
}

func testScoreEndpoints(t *testing.T, g *Graph) {
	ctx := context.Background()
	assert.ErrorIs(t, g.UpsertResourceScore(ctx, uuid.New(), 1), socialgraph.ErrNotFound)
	assert.ErrorIs(t, g.UpsertUserScore(ctx, uuid.New(), 1), socialgraph.ErrNotFound)
}
