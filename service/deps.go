package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/odit-bit/expertfinder/ranking"
	"github.com/odit-bit/expertfinder/retry"
	"github.com/odit-bit/expertfinder/socialgraph"
	"github.com/odit-bit/expertfinder/sqlgraph"
	"github.com/odit-bit/expertfinder/textanalysis"
)

const previewLength = 80

var outWriter = os.Stdout

func openGraph(e *env) (*sqlgraph.Graph, error) {
	graph, err := sqlgraph.Open(e.cfg.DBDriver, e.cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	return graph, nil
}

// newAnalyzer builds the text analyzer. TAGME is used when TAGME_URL is set,
// fetched pages are cached in Redis when REDIS_ADDR is set.
func newAnalyzer(ctx context.Context, e *env) (*textanalysis.Analyzer, func(), error) {
	closeFn := func() {}

	expCfg := textanalysis.ExpanderConfig{
		HTTPClient: &http.Client{Timeout: e.cfg.LinkFetchTimeout},
		Logger:     e.log.Named("links"),
	}
	if e.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     e.cfg.RedisAddr,
			Password: e.cfg.RedisPassword,
			DB:       e.cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		expCfg.Cache = textanalysis.NewRedisCache(client, e.cfg.LinkCacheTTL)
		closeFn = func() { _ = client.Close() }
	}

	var tagme *textanalysis.TagmeClient
	if e.cfg.TagmeURL != "" {
		tagme = textanalysis.NewTagmeClient(textanalysis.TagmeConfig{
			URL:           e.cfg.TagmeURL,
			Key:           e.cfg.TagmeKey,
			Retry:         retry.Policy{MaxAttempts: e.cfg.TagmeRetryAttempts, Delay: e.cfg.TagmeRetryDelay},
			CourtesyDelay: e.cfg.TagmeCourtesyDelay,
			Logger:        e.log.Named("tagme"),
		})
	}
	return textanalysis.NewAnalyzer(textanalysis.NewLinkExpander(expCfg), tagme), closeFn, nil
}

func newFinder(ctx context.Context, e *env, graph socialgraph.Graph) (*ranking.Finder, func(), error) {
	analyzer, closeFn, err := newAnalyzer(ctx, e)
	if err != nil {
		return nil, nil, err
	}
	engine := ranking.NewEngine(ranking.EngineConfig{
		Graph:         graph,
		Workers:       e.cfg.ScoreWorkers,
		CompletedOnly: e.cfg.ScoreCompletedOnly,
		Logger:        e.log.Named("ranking"),
	})
	// queries are analyzed without link expansion
	return ranking.NewFinder(engine, analyzer), closeFn, nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > previewLength {
		return string(r[:previewLength-3]) + "..."
	}
	return text
}
