package crawler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/odit-bit/expertfinder/socialgraph"
	"github.com/odit-bit/expertfinder/textanalysis"
)

// ingest returns the stored resource matching candidate, storing it first
// when it is new and its text is English. A nil resource means the
// candidate was discarded.
func (s *Scheduler) ingest(ctx context.Context, candidate *socialgraph.Resource) (*socialgraph.Resource, error) {
	existing, err := s.graph.LookupResource(ctx, candidate.Network, candidate.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, socialgraph.ErrNotFound) {
		return nil, err
	}

	res := *candidate
	res.Text = textanalysis.SanitizeForStorage(res.Text)
	if candidate.Location != nil {
		loc := *candidate.Location
		loc.Name = textanalysis.SanitizeForStorage(loc.Name)
		res.Location = &loc
	}

	content := s.analyzer.ExpandLinks(ctx, res.Text)
	if !s.analyzer.IsEnglish(content) {
		s.metrics.discarded.Inc()
		s.log.Debug("discarding non english resource", zap.String("external_id", res.ExternalID))
		return nil, nil
	}

	ann := s.analyzer.Analyze(ctx, content)
	if _, err := s.graph.InsertResource(ctx, &res, ann); err != nil {
		return nil, err
	}
	return &res, nil
}
