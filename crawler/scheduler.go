package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/odit-bit/expertfinder/logger"
	"github.com/odit-bit/expertfinder/retry"
	"github.com/odit-bit/expertfinder/socialgraph"
)

var tracer = otel.Tracer("github.com/odit-bit/expertfinder/crawler")

// Config configures a Scheduler.
type Config struct {
	Graph    socialgraph.Graph
	Source   Source
	Analyzer Analyzer

	// Retry applies to every Source call.
	Retry retry.Policy

	// IdleWait is how long Run waits for new users once the graph is
	// exhausted. Zero makes Run return ErrNoUncompletedUsers instead.
	IdleWait time.Duration

	// Registerer receives the progress metrics, the default registerer when nil.
	Registerer prometheus.Registerer
	Logger     *zap.Logger
}

// Scheduler crawls a social network breadth first, attributing every
// resource it finds to the last WindowSize visited users.
type Scheduler struct {
	graph    socialgraph.Graph
	source   Source
	analyzer Analyzer
	network  string

	retry    retry.Policy
	idleWait time.Duration

	window   *window
	started  bool
	firstRun bool

	steps     int
	startedAt time.Time

	metrics *metrics
	log     *zap.Logger
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Graph == nil || cfg.Source == nil || cfg.Analyzer == nil {
		return nil, errors.New("crawler: graph, source and analyzer are required")
	}
	return &Scheduler{
		graph:    cfg.Graph,
		source:   cfg.Source,
		analyzer: cfg.Analyzer,
		network:  cfg.Source.Network(),
		retry:    cfg.Retry,
		idleWait: cfg.IdleWait,
		window:   newWindow(),
		metrics:  newMetrics(cfg.Registerer),
		log:      logger.OrNop(cfg.Logger),
	}, nil
}

// Run steps until ctx is done or a step fails. With a zero IdleWait an
// exhausted graph ends the crawl with ErrNoUncompletedUsers.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Step(ctx)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNoUncompletedUsers) && s.idleWait > 0 {
			s.log.Info("graph exhausted, waiting for new users", zap.Duration("wait", s.idleWait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.idleWait):
			}
			continue
		}
		if err != nil {
			return err
		}
	}
}

// Step visits one user.
func (s *Scheduler) Step(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "crawler.Step")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	begin := time.Now()
	if !s.started {
		n, err := s.graph.CountUsers(ctx, s.network)
		if err != nil {
			return err
		}
		s.started = true
		s.firstRun = n == 0
		s.startedAt = begin
	}

	user, err := s.nextUser(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("user.handle", user.Handle))
	s.log.Info("current user", zap.String("handle", user.Handle), zap.String("external_id", user.ExternalID))

	// a failed step leaves the window as it found it, the user stays
	// uncompleted and is visited again
	s.window.pushFront(user)
	if err := s.visit(ctx, user); err != nil {
		s.window.popFront()
		return err
	}

	if s.window.full() {
		oldest := s.window.at(WindowSize - 1)
		if err := s.graph.MarkCompleted(ctx, oldest.ID); err != nil {
			s.window.popFront()
			return fmt.Errorf("complete user %s: %w", oldest.Handle, err)
		}
		s.window.evictOldest()
		oldest.Completed = true
	}

	s.steps++
	s.metrics.steps.Inc()
	s.metrics.stepDuration.Observe(time.Since(begin).Seconds())
	return s.reportProgress(ctx)
}

func (s *Scheduler) nextUser(ctx context.Context) (*socialgraph.User, error) {
	if s.firstRun {
		seed, err := retry.DoValue(ctx, s.retry, s.source.FirstUser)
		if err != nil {
			return nil, fmt.Errorf("seed user: %w", err)
		}
		if _, err := s.graph.UpsertUser(ctx, seed); err != nil {
			return nil, err
		}
		s.firstRun = false
		return seed, nil
	}

	user, err := s.graph.FindUncompletedUser(ctx, s.network, s.window.ids())
	if errors.Is(err, socialgraph.ErrNotFound) {
		return nil, ErrNoUncompletedUsers
	}
	return user, err
}

func (s *Scheduler) visit(ctx context.Context, user *socialgraph.User) error {
	if err := s.visitProfile(ctx, user); err != nil {
		return err
	}
	if err := s.visitPosts(ctx, user); err != nil {
		return err
	}
	return s.visitFollowees(ctx, user)
}

// visitProfile links the profile to every user of the window, the visited
// user at distance 0.
func (s *Scheduler) visitProfile(ctx context.Context, user *socialgraph.User) error {
	profile, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) (*socialgraph.Resource, error) {
		return s.source.Profile(ctx, user)
	})
	if err != nil {
		// a cancelled crawl stops, any other failure degrades to no profile
		s.sourceFailed("profile", user, err)
		return ctx.Err()
	}
	if profile == nil {
		return nil
	}

	res, err := s.ingest(ctx, profile)
	if err != nil || res == nil {
		return err
	}
	for d := 0; d < s.window.len(); d++ {
		if err := s.link(ctx, s.window.at(d), res, d); err != nil {
			return err
		}
	}
	return nil
}

// visitPosts links every post to the visited user at distance 1 and to the
// previous one at distance 2.
func (s *Scheduler) visitPosts(ctx context.Context, user *socialgraph.User) error {
	posts, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) ([]*socialgraph.Resource, error) {
		return s.source.Posts(ctx, user)
	})
	if err != nil {
		s.sourceFailed("posts", user, err)
		return ctx.Err()
	}

	for _, post := range posts {
		res, err := s.ingest(ctx, post)
		if err != nil {
			return err
		}
		if res == nil {
			continue
		}
		for d := 0; d < s.window.len() && d < 2; d++ {
			if err := s.link(ctx, s.window.at(d), res, d+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) visitFollowees(ctx context.Context, user *socialgraph.User) error {
	followees, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) ([]*socialgraph.User, error) {
		return s.source.Followees(ctx, user)
	})
	if err != nil {
		s.sourceFailed("followees", user, err)
		return ctx.Err()
	}

	for _, followee := range followees {
		followee.Completed = false
		if _, err := s.graph.UpsertUser(ctx, followee); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) link(ctx context.Context, user *socialgraph.User, res *socialgraph.Resource, distance int) error {
	edge := socialgraph.Edge{UserID: user.ID, ResourceID: res.ID, Distance: distance}
	if err := s.graph.UpsertEdge(ctx, &edge); err != nil {
		return fmt.Errorf("link %s to %s: %w", user.Handle, res.ExternalID, err)
	}
	return nil
}

func (s *Scheduler) sourceFailed(call string, user *socialgraph.User, err error) {
	s.metrics.sourceFailure.WithLabelValues(call).Inc()
	s.log.Warn("source call failed, continuing without result",
		zap.String("call", call), zap.String("handle", user.Handle), zap.Error(err))
}

func (s *Scheduler) reportProgress(ctx context.Context) error {
	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return err
	}
	s.metrics.users.Set(float64(stats.Users))
	s.metrics.completedUsers.Set(float64(stats.CompletedUsers))
	s.metrics.resources.Set(float64(stats.Resources))

	avg := time.Since(s.startedAt).Seconds() / float64(s.steps)
	s.log.Info("progress",
		zap.Int("users", stats.Users),
		zap.Int("completed_users", stats.CompletedUsers),
		zap.Int("resources", stats.Resources),
		zap.Float64("avg_step_seconds", avg))
	return nil
}

// Window returns the ids of the users in the crawl window, most recent first.
func (s *Scheduler) Window() []uuid.UUID {
	return s.window.ids()
}
