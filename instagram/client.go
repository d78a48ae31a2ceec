// Package instagram is a crawler source reading the Instagram v1 REST API.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/odit-bit/expertfinder/crawler"
	"github.com/odit-bit/expertfinder/logger"
	"github.com/odit-bit/expertfinder/retry"
	"github.com/odit-bit/expertfinder/socialgraph"
)

// Network identifies Instagram users and resources in the graph.
const Network = "IG"

const (
	DefaultBaseURL       = "https://api.instagram.com/v1"
	DefaultCourtesyDelay = 700 * time.Millisecond

	mediaPageSize = 33
	profileURL    = "http://instagram.com/"
)

var _ crawler.Source = (*Client)(nil)

// Config configures a Client.
type Config struct {
	BaseURL  string
	ClientID string

	// SeedUserID is the user a crawl on an empty graph starts from.
	SeedUserID string

	// CourtesyDelay is the minimum time between two requests.
	CourtesyDelay time.Duration

	// MaxPages bounds the pages read per listing, 0 reads them all.
	MaxPages int

	// Retry applies to every request. Errors returned by the client already
	// went through it and are marked retry.Permanent.
	Retry retry.Policy

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client reads profiles, recent media and follows of Instagram users.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CourtesyDelay == 0 {
		cfg.CourtesyDelay = DefaultCourtesyDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(cfg.CourtesyDelay), 1),
		log:     logger.OrNop(cfg.Logger),
	}
}

// Network implements crawler.Source.
func (c *Client) Network() string { return Network }

// FirstUser implements crawler.Source.
func (c *Client) FirstUser(ctx context.Context) (*socialgraph.User, error) {
	info, err := c.user(ctx, c.cfg.SeedUserID)
	if err != nil {
		return nil, err
	}
	return info.graphUser(), nil
}

// Profile implements crawler.Source. The profile text is the bio followed
// by the website, users without a bio have no profile.
func (c *Client) Profile(ctx context.Context, user *socialgraph.User) (*socialgraph.Resource, error) {
	info, err := c.user(ctx, user.ExternalID)
	if err != nil {
		return nil, err
	}
	if info.Bio == nil {
		return nil, nil
	}

	text := *info.Bio
	if info.Website != "" {
		text += " " + info.Website
	}
	return &socialgraph.Resource{
		Network:    Network,
		ExternalID: user.ExternalID,
		URL:        profileURL + info.Username,
		Text:       text,
	}, nil
}

// Posts implements crawler.Source.
func (c *Client) Posts(ctx context.Context, user *socialgraph.User) ([]*socialgraph.Resource, error) {
	var posts []*socialgraph.Resource
	err := c.paginate(ctx, "/users/"+url.PathEscape(user.ExternalID)+"/media/recent", "max_id",
		url.Values{"count": {fmt.Sprint(mediaPageSize)}},
		func(data json.RawMessage) error {
			var page []media
			if err := json.Unmarshal(data, &page); err != nil {
				return err
			}
			for i := range page {
				if res := page[i].resource(); res != nil {
					posts = append(posts, res)
				}
			}
			return nil
		})
	return posts, err
}

// Followees implements crawler.Source.
func (c *Client) Followees(ctx context.Context, user *socialgraph.User) ([]*socialgraph.User, error) {
	var followees []*socialgraph.User
	err := c.paginate(ctx, "/users/"+url.PathEscape(user.ExternalID)+"/follows", "cursor", nil,
		func(data json.RawMessage) error {
			var page []userInfo
			if err := json.Unmarshal(data, &page); err != nil {
				return err
			}
			for i := range page {
				followees = append(followees, page[i].graphUser())
			}
			return nil
		})
	return followees, err
}

func (c *Client) user(ctx context.Context, id string) (*userInfo, error) {
	var env envelope
	if err := c.fetch(ctx, "/users/"+url.PathEscape(id), nil, &env); err != nil {
		return nil, err
	}
	var info userInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, retry.Permanent(fmt.Errorf("instagram: decode user %s: %w", id, err))
	}
	return &info, nil
}

// paginate reads a listing page by page, the next page is addressed by the
// cursor parameter found in pagination.next_url. Every page is retried on its
// own and the pages read before a page gives up are kept.
func (c *Client) paginate(ctx context.Context, path, cursorParam string, query url.Values, handle func(json.RawMessage) error) error {
	cursor := ""
	for page := 0; c.cfg.MaxPages == 0 || page < c.cfg.MaxPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if cursor != "" {
			q.Set(cursorParam, cursor)
		}

		var env envelope
		if err := c.fetch(ctx, path, q, &env); err != nil {
			if page > 0 && ctx.Err() == nil {
				c.log.Warn("listing cut short", zap.String("path", path), zap.Int("pages", page), zap.Error(err))
				return nil
			}
			return err
		}
		if err := handle(env.Data); err != nil {
			return retry.Permanent(fmt.Errorf("instagram: decode %s: %w", path, err))
		}

		cursor = nextCursor(env.Pagination.NextURL, cursorParam)
		if cursor == "" {
			return nil
		}
	}
	return nil
}

func nextCursor(nextURL, param string) string {
	if nextURL == "" {
		return ""
	}
	u, err := url.Parse(nextURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(param)
}

// fetch is get retried with the client policy.
func (c *Client) fetch(ctx context.Context, path string, query url.Values, out *envelope) error {
	err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) error {
		*out = envelope{}
		return c.get(ctx, path, query, out)
	})
	return retry.Permanent(err)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out *envelope) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return retry.Permanent(err)
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("client_id", c.cfg.ClientID)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		// network failures are transient
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return classify(newAPIError(res))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("instagram: decode %s: %w", path, err)
	}
	return nil
}
