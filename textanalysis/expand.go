package textanalysis

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"mvdan.cc/xurls/v2"

	"github.com/odit-bit/expertfinder/logger"
)

// LinkCache keeps the text of already fetched pages.
type LinkCache interface {
	// Get returns the cached text of pageURL, ok is false on a miss.
	Get(ctx context.Context, pageURL string) (text string, ok bool, err error)
	Set(ctx context.Context, pageURL, text string) error
}

// ExpanderConfig configures a LinkExpander.
type ExpanderConfig struct {
	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client

	// Cache is optional.
	Cache  LinkCache
	Logger *zap.Logger
}

// LinkExpander replaces the links found in a text with the text of the page
// the first one points to.
type LinkExpander struct {
	client *http.Client
	cache  LinkCache
	log    *zap.Logger
}

func NewLinkExpander(cfg ExpanderConfig) *LinkExpander {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &LinkExpander{
		client: cfg.HTTPClient,
		cache:  cfg.Cache,
		log:    logger.OrNop(cfg.Logger),
	}
}

var urlRegex = xurls.Relaxed()

// isWebLink keeps the matches carrying a scheme or starting with "www.",
// bare domains and e-mail addresses are plain text.
func isWebLink(match string) bool {
	lower := strings.ToLower(match)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}

func firstWebLink(text string) string {
	for _, m := range urlRegex.FindAllString(text, -1) {
		if isWebLink(m) {
			return m
		}
	}
	return ""
}

func removeWebLinks(text string) string {
	return urlRegex.ReplaceAllStringFunc(text, func(m string) string {
		if isWebLink(m) {
			return ""
		}
		return m
	})
}

// Expand fetches the first link of text and returns text followed by the
// page text, with every link removed. text is returned unchanged when it has
// no link or the page cannot be read.
func (e *LinkExpander) Expand(ctx context.Context, text string) string {
	link := firstWebLink(text)
	if link == "" {
		return text
	}
	pageURL := formatURL(link)

	page, err := e.pageText(ctx, pageURL)
	if err != nil {
		e.log.Debug("link expansion failed", zap.String("url", pageURL), zap.Error(err))
		return text
	}
	return strings.TrimSpace(removeWebLinks(text + " " + page))
}

// formatURL keeps the link from its scheme on, or forces http:// on a bare
// host.
func formatURL(link string) string {
	if pos := strings.Index(link, "http"); pos != -1 {
		return link[pos:]
	}
	return "http://" + link
}

func (e *LinkExpander) pageText(ctx context.Context, pageURL string) (string, error) {
	if e.cache != nil {
		text, ok, err := e.cache.Get(ctx, pageURL)
		if err != nil {
			e.log.Warn("link cache read failed", zap.Error(err))
		} else if ok {
			return text, nil
		}
	}

	text, err := e.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, pageURL, text); err != nil {
			e.log.Warn("link cache write failed", zap.Error(err))
		}
	}
	return text, nil
}

// nonContentSelectors lists elements to strip before extracting body text.
const nonContentSelectors = "script, style, noscript, nav, header, footer"

func (e *LinkExpander) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	res, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", pageURL, res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return "", fmt.Errorf("fetch %s: no body", pageURL)
	}
	body.Find(nonContentSelectors).Remove()
	return strings.Join(strings.Fields(body.Text()), " "), nil
}
