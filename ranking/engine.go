package ranking

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/odit-bit/expertfinder/logger"
	"github.com/odit-bit/expertfinder/socialgraph"
)

var tracer = otel.Tracer("github.com/odit-bit/expertfinder/ranking")

// EngineConfig configures an Engine.
type EngineConfig struct {
	Graph socialgraph.Graph

	// Alpha defaults to DefaultAlpha when zero.
	Alpha float64

	// Workers bounds the scores computed at once, 1 when zero.
	Workers int

	// CompletedOnly restricts user scoring to users that left the crawl window.
	CompletedOnly bool

	Logger *zap.Logger
}

// Engine runs the scoring passes over the whole graph. Every score is
// recomputed from scratch so a failed pass is repaired by running it again.
type Engine struct {
	graph  socialgraph.Graph
	scorer *ResourceScorer
	ranker *UserRanker

	workers       int
	completedOnly bool
	log           *zap.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Alpha == 0 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		graph:         cfg.Graph,
		scorer:        NewResourceScorer(cfg.Graph, cfg.Alpha),
		ranker:        NewUserRanker(cfg.Graph),
		workers:       cfg.Workers,
		completedOnly: cfg.CompletedOnly,
		log:           logger.OrNop(cfg.Logger),
	}
}

func (e *Engine) Scorer() *ResourceScorer { return e.scorer }
func (e *Engine) Ranker() *UserRanker     { return e.ranker }

// ScoreResources scores every stored resource against q.
func (e *Engine) ScoreResources(ctx context.Context, q *Query) (int, error) {
	ctx, span := tracer.Start(ctx, "ranking.ScoreResources")
	defer span.End()

	it, err := e.graph.Resources(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	n := 0
	for it.Next() {
		if gctx.Err() != nil {
			break
		}
		res := it.Resource()
		n++
		g.Go(func() error {
			if _, err := e.scorer.Compute(gctx, res.ID, q); err != nil {
				return fmt.Errorf("score resource %s: %w", res.ExternalID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := it.Error(); err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("resources", n))
	e.log.Debug("resources scored", zap.Int("resources", n))
	return n, nil
}

// ScoreUsers scores every user, or only completed ones when configured so.
func (e *Engine) ScoreUsers(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "ranking.ScoreUsers")
	defer span.End()

	it, err := e.graph.Users(ctx, socialgraph.UserFilter{CompletedOnly: e.completedOnly})
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	n := 0
	for it.Next() {
		if gctx.Err() != nil {
			break
		}
		user := it.User()
		n++
		g.Go(func() error {
			if _, err := e.ranker.Compute(gctx, user.ID); err != nil {
				return fmt.Errorf("score user %s: %w", user.Handle, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := it.Error(); err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("users", n))
	e.log.Debug("users scored", zap.Int("users", n))
	return n, nil
}
