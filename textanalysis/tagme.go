package textanalysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/odit-bit/expertfinder/logger"
	"github.com/odit-bit/expertfinder/retry"
	"github.com/odit-bit/expertfinder/socialgraph"
)

// TagmeConfig configures a TagmeClient.
type TagmeConfig struct {
	// URL of the tag endpoint, e.g. "https://tagme.d4science.org/tagme/tag".
	URL string
	Key string

	// Retry applies to timeouts only, other failures give up immediately.
	Retry retry.Policy

	// CourtesyDelay is the minimum time between two requests, zero does not
	// throttle.
	CourtesyDelay time.Duration

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// TagmeClient extracts weighted entities through the TAGME annotation API.
type TagmeClient struct {
	cfg     TagmeConfig
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewTagmeClient(cfg TagmeConfig) *TagmeClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	if cfg.CourtesyDelay > 0 {
		limit = rate.Every(cfg.CourtesyDelay)
	}
	return &TagmeClient{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.OrNop(cfg.Logger),
	}
}

type tagmeResponse struct {
	Annotations []json.RawMessage `json:"annotations"`
}

type tagmeAnnotation struct {
	Title *string  `json:"title"`
	Rho   *float64 `json:"rho"`
}

// Entities sanitizes text and annotates it. Any failure after the retries
// yields no entities, annotations missing a title or rho are skipped.
func (c *TagmeClient) Entities(ctx context.Context, text string) []socialgraph.WeightedEntity {
	sane := Sanitize(text)
	if sane == "" {
		return nil
	}

	resp, err := retry.DoValue(ctx, c.cfg.Retry, func(ctx context.Context) (*tagmeResponse, error) {
		resp, err := c.tag(ctx, sane)
		if err != nil && !isTimeout(err) {
			return nil, retry.Permanent(err)
		}
		return resp, err
	})
	if err != nil {
		c.log.Warn("entity extraction failed", zap.Error(err))
		return nil
	}

	entities := make([]socialgraph.WeightedEntity, 0, len(resp.Annotations))
	for _, raw := range resp.Annotations {
		var a tagmeAnnotation
		if err := json.Unmarshal(raw, &a); err != nil || a.Title == nil || a.Rho == nil {
			c.log.Warn("skipping malformed annotation", zap.ByteString("annotation", raw))
			continue
		}
		entities = append(entities, socialgraph.WeightedEntity{Name: *a.Title, Rho: *a.Rho})
	}
	return entities
}

func (c *TagmeClient) tag(ctx context.Context, text string) (*tagmeResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("key", c.cfg.Key)
	q.Set("text", text)
	q.Set("lang", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tagme: unexpected status %d", res.StatusCode)
	}
	var out tagmeResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tagme: decode: %w", err)
	}
	return &out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
