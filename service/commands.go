package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/odit-bit/expertfinder"
	"github.com/odit-bit/expertfinder/crawler"
	"github.com/odit-bit/expertfinder/instagram"
	"github.com/odit-bit/expertfinder/retry"
)

func crawlCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the social network into the graph store",
		RunE: run(func(ctx context.Context, e *env) error {
			if e.cfg.Network != instagram.Network {
				return fmt.Errorf("unsupported network %q", e.cfg.Network)
			}
			if e.cfg.InstagramClientID == "" {
				return errors.New("INSTAGRAM_CLIENT_ID is required to crawl")
			}

			graph, err := openGraph(e)
			if err != nil {
				return err
			}
			defer graph.Close()

			analyzer, closeAnalyzer, err := newAnalyzer(ctx, e)
			if err != nil {
				return err
			}
			defer closeAnalyzer()

			source := instagram.New(instagram.Config{
				BaseURL:       e.cfg.InstagramAPIURL,
				ClientID:      e.cfg.InstagramClientID,
				SeedUserID:    e.cfg.InstagramSeedUser,
				CourtesyDelay: e.cfg.CourtesyDelay,
				MaxPages:      e.cfg.InstagramMaxPages,
				Retry:         retry.Policy{MaxAttempts: e.cfg.RetryAttempts, Delay: e.cfg.RetryDelay},
				Logger:        e.log.Named("instagram"),
			})

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			scheduler, err := crawler.NewScheduler(crawler.Config{
				Graph:      graph,
				Source:     source,
				Analyzer:   analyzer,
				Retry:      retry.Policy{MaxAttempts: e.cfg.RetryAttempts, Delay: e.cfg.RetryDelay},
				IdleWait:   e.cfg.IdleWait,
				Registerer: reg,
				Logger:     e.log.Named("crawler"),
			})
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			metricsSrv := &http.Server{
				Addr:              e.cfg.MetricsAddr,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				e.log.Info("serving metrics", zap.String("addr", e.cfg.MetricsAddr))
				if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = metricsSrv.Shutdown(shutdownCtx)
				}()
				return crawl(ctx, e, scheduler, steps)
			})
			return g.Wait()
		}),
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "Number of users to visit (<=0 crawls until interrupted or exhausted)")
	return cmd
}

func crawl(ctx context.Context, e *env, s *crawler.Scheduler, steps int) error {
	var err error
	if steps <= 0 {
		err = s.Run(ctx)
	} else {
		for i := 0; i < steps && err == nil; i++ {
			err = s.Step(ctx)
		}
	}

	switch {
	case errors.Is(err, crawler.ErrNoUncompletedUsers):
		e.log.Info("crawl finished, no uncompleted users left")
		return nil
	case errors.Is(err, context.Canceled):
		e.log.Info("crawl interrupted")
		return nil
	}
	return err
}

func findCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Score the graph against a query and print the best results",
		RunE: run(func(ctx context.Context, e *env) error {
			graph, err := openGraph(e)
			if err != nil {
				return err
			}
			defer graph.Close()

			finder, closeFinder, err := newFinder(ctx, e, graph)
			if err != nil {
				return err
			}
			defer closeFinder()

			results, err := finder.Find(ctx, query)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(outWriter)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "URL", "Location", "Text"})
			for i, r := range results {
				t.AppendRow(table.Row{i + 1, r.URL, r.LocationName(), preview(r.Text)})
			}
			t.AppendFooter(table.Row{"", "", "Total", len(results)})
			t.Render()
			return nil
		}),
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query text (required)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over gRPC",
		RunE: run(func(ctx context.Context, e *env) error {
			graph, err := openGraph(e)
			if err != nil {
				return err
			}
			defer graph.Close()

			finder, closeFinder, err := newFinder(ctx, e, graph)
			if err != nil {
				return err
			}
			defer closeFinder()

			srv := expertfinder.Server{
				Port:   e.cfg.GRPCPort,
				Finder: finder,
				Graph:  graph,
				Logger: e.log.Named("grpc"),
			}
			return srv.ListenAndServe(ctx)
		}),
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the crawl progress",
		RunE: run(func(ctx context.Context, e *env) error {
			graph, err := openGraph(e)
			if err != nil {
				return err
			}
			defer graph.Close()

			stats, err := graph.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(outWriter, "users: %d\ncompleted users: %d\nresources: %d\n",
				stats.Users, stats.CompletedUsers, stats.Resources)
			return nil
		}),
	}
}
