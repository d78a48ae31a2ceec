package ranking

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// QueryAnalyzer turns a query text into stems and entities.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, text string) socialgraph.Annotation
}

// Finder answers expert finding queries. Scores are stored per resource and
// per user, not per query, so queries run one at a time.
type Finder struct {
	mu       sync.Mutex
	engine   *Engine
	analyzer QueryAnalyzer
}

func NewFinder(engine *Engine, analyzer QueryAnalyzer) *Finder {
	return &Finder{engine: engine, analyzer: analyzer}
}

// Find scores the graph against query and returns the best geotagged
// resources of the best users.
func (f *Finder) Find(ctx context.Context, query string) ([]socialgraph.Resource, error) {
	ctx, span := tracer.Start(ctx, "ranking.Find", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	f.mu.Lock()
	defer f.mu.Unlock()

	ann := f.analyzer.Analyze(ctx, query)
	span.SetAttributes(
		attribute.Int("query.stems", len(ann.Stems)),
		attribute.Int("query.entities", len(ann.Entities)),
	)

	q, err := f.engine.scorer.Prepare(ctx, ann)
	if err != nil {
		return nil, err
	}
	if _, err := f.engine.ScoreResources(ctx, q); err != nil {
		return nil, err
	}
	if _, err := f.engine.ScoreUsers(ctx); err != nil {
		return nil, err
	}

	results, err := f.engine.ranker.BestResults(ctx)
	if err != nil {
		return nil, err
	}
	f.engine.log.Info("query answered",
		zap.String("query", query),
		zap.Strings("stems", ann.Stems),
		zap.Int("results", len(results)))
	return results, nil
}
