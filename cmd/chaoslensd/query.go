package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chaoslens/internal/query"
	"github.com/standardbeagle/chaoslens/internal/store"
)

func buildSurface(st store.Store) *query.Surface {
	return query.New(st, manifoldConfig(), chaosConfig())
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "Search file bodies for a literal substring or, if it contains regex metacharacters, a regular expression",
	ArgsUsage: "<query>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "glob", Usage: "Restrict the search to paths matching this glob", Value: "*"},
		&cli.BoolFlag{Name: "case-sensitive", Usage: "Match case-sensitively"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum hits to return (0 = unlimited)", Value: 50},
		&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return fmt.Errorf("usage: chaoslensd search <query>")
		}
		st, err := openStore(c)
		if err != nil {
			return err
		}
		surface := buildSurface(st)
		result, err := surface.SearchSubstring(context.Background(), c.Args().First(), c.String("glob"), c.Bool("case-sensitive"), c.Int("limit"))
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if c.Bool("json") {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		for _, hit := range result.Hits {
			fmt.Printf("%s:%d: %s\n", hit.Path, hit.Line, hit.Match)
			for _, line := range hit.Context {
				fmt.Printf("  %s\n", line)
			}
		}
		fmt.Printf("%d hits shown, %d total\n", len(result.Hits), result.Total)
		return nil
	},
}

var verifyCommand = &cli.Command{
	Name:  "verify",
	Usage: "Check how well a code snippet's structural signature is already covered by the index",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Usage: "Read the snippet from this file instead of stdin"},
		&cli.Float64Flag{Name: "coverage", Usage: "Safe-coverage threshold required to call the snippet verified", Value: 0.8},
		&cli.StringFlag{Name: "glob", Usage: "Restrict neighbor lookups to paths matching this glob", Value: "*"},
		&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
	},
	Action: func(c *cli.Context) error {
		var snippet []byte
		var err error
		if path := c.String("file"); path != "" {
			snippet, err = os.ReadFile(path)
		} else {
			snippet, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("failed to read snippet: %w", err)
		}

		st, err := openStore(c)
		if err != nil {
			return err
		}
		surface := buildSurface(st)
		result, err := surface.VerifySnippet(context.Background(), snippet, c.Float64("coverage"), c.String("glob"))
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}
		if c.Bool("json") {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		fmt.Printf("windows=%d raw_match_ratio=%.3f safe_coverage=%.3f verified=%t\n",
			result.TotalWindows, result.RawMatchRatio, result.SafeCoverage, result.Verified)
		return nil
	},
}

var clusterCommand = &cli.Command{
	Name:  "cluster",
	Usage: "Group indexed files into k clusters in (coherence, stability, entropy) space",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "glob", Usage: "Restrict clustering to paths matching this glob", Value: "*"},
		&cli.IntFlag{Name: "k", Usage: "Number of clusters", Value: 4},
		&cli.Int64Flag{Name: "seed", Usage: "Random seed for centroid initialization", Value: 1},
		&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c)
		if err != nil {
			return err
		}
		surface := buildSurface(st)
		rng := rand.New(rand.NewSource(c.Int64("seed")))
		result, err := surface.Cluster(context.Background(), c.String("glob"), c.Int("k"), rng)
		if err != nil {
			return fmt.Errorf("cluster failed: %w", err)
		}
		if c.Bool("json") {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		byCluster := make(map[int][]string)
		for path, idx := range result.Assignment {
			byCluster[idx] = append(byCluster[idx], path)
		}
		for i, centroid := range result.Centroids {
			fmt.Printf("cluster %d centroid=(%.3f, %.3f, %.3f): %s\n",
				i, centroid[0], centroid[1], centroid[2], strings.Join(byCluster[i], ", "))
		}
		return nil
	},
}
