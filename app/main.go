// Command expertfinder-cli queries a running expertfinder server.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/odit-bit/expertfinder"
)

var (
	ServerAddr = "localhost:8181"
	Timeout    = 2 * time.Minute
)

var rootCmd = &cobra.Command{
	Use:          "expertfinder-cli",
	Short:        "Query an expertfinder server",
	SilenceUsage: true,
}

var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Print the best geotagged resources of the experts of a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, cli *expertfinder.Client) error {
			results, err := cli.Find(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "URL", "Location", "Lat", "Lon"})
			for i, r := range results {
				row := table.Row{i + 1, r.URL, r.LocationName(), "", ""}
				if r.Location != nil {
					row[3], row[4] = r.Location.Lat, r.Location.Lon
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the crawl progress",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, cli *expertfinder.Client) error {
			stats, err := cli.Stats(ctx)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Users", "Completed", "Resources"})
			t.AppendRow(table.Row{stats.Users, stats.CompletedUsers, stats.Resources})
			t.Render()
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&ServerAddr, "addr", "a", ServerAddr, "Server host:port address")
	rootCmd.PersistentFlags().DurationVarP(&Timeout, "timeout", "t", Timeout, "Request timeout")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withClient(ctx context.Context, fn func(context.Context, *expertfinder.Client) error) error {
	conn, err := grpc.Dial(ServerAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", ServerAddr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()
	return fn(ctx, expertfinder.NewClient(conn))
}
